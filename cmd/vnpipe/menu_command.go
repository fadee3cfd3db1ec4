package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vnpipe/internal/catalog"
)

func newMenuCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu [project|seq|shot|task]",
		Short: "List tracker menu entries for the configured user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.flowClient()
			if err != nil {
				return err
			}
			cat := catalog.New(client, client.UserEmail(), ctx.log())

			if len(args) == 1 {
				kind, err := catalog.ParseMenuKind(args[0])
				if err != nil {
					return err
				}
				items, err := cat.Menu(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				rows := make([][]string, 0, len(items))
				for i, item := range items {
					rows = append(rows, []string{strconv.Itoa(i), item.Label})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", string(kind)}, rows, []columnAlignment{alignRight, alignLeft}))
				return nil
			}

			menus, err := cat.Menus(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, menus)
			}
			rows := make([][]string, 0)
			for _, kind := range catalog.MenuKinds() {
				for i, label := range menus.Labels(kind) {
					rows = append(rows, []string{string(kind), strconv.Itoa(i), label})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Menu", "#", "Entry"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	return cmd
}

type sceneReport struct {
	Scene      catalog.SceneContext `json:"scene"`
	Selections catalog.Selections   `json:"selections,omitempty"`
}

func newSceneCommand(ctx *commandContext) *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "scene <file>",
		Short: "Parse pipeline context from a scene file name",
		Long: "Splits PROJECT_SEQ_SHOT_NN_TASK out of the scene file name. With --resolve the\n" +
			"values are located in the tracker menus and their indexes printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := catalog.ParseSceneName(args[0])
			if err != nil {
				return err
			}
			report := sceneReport{Scene: scene}
			if resolve {
				client, err := ctx.flowClient()
				if err != nil {
					return err
				}
				menus, err := catalog.New(client, client.UserEmail(), ctx.log()).Menus(cmd.Context())
				if err != nil {
					return err
				}
				report.Selections, err = catalog.DefaultSelections(menus, scene)
				if err != nil {
					return err
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			values := map[catalog.MenuKind]string{
				catalog.MenuProject:  scene.Project,
				catalog.MenuSequence: scene.Sequence,
				catalog.MenuShot:     scene.Shot,
				catalog.MenuTask:     scene.Task,
			}
			headers := []string{"Field", "Value"}
			if resolve {
				headers = append(headers, "Menu index")
			}
			rows := make([][]string, 0, len(values))
			for _, kind := range catalog.MenuKinds() {
				row := []string{string(kind), values[kind]}
				if resolve {
					row = append(row, strconv.Itoa(report.Selections[kind]))
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Locate the values in the tracker menus")
	return cmd
}
