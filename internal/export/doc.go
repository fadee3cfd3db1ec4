// Package export configures and triggers the export nodes of a host scene.
//
// Each export Kind maps to one node type and the parameters that hold its
// output location. ConfigureAndExecute looks up the first node of the
// required type among a container's immediate children, writes the
// versioned output path and presses the node's execute button. The produced
// file path is returned so it can be handed to the publish workflow.
package export
