// Package catalog resolves the tracker data shown in host parameter menus.
//
// Menus are built for the configured user: the projects they belong to, the
// tasks assigned to them, and the shots and sequences derived from those
// tasks. ParseSceneName and DefaultSelections preselect the menu entries that
// match the scene file naming convention PROJECT_SEQ_SHOT_NN_TASK.
package catalog
