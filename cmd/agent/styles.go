package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/frameforge/frameforge-agent/internal/generate"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the built-in visual style presets",
	Run: func(cmd *cobra.Command, args []string) {
		byCategory := make(map[string][]generate.Style)
		for _, s := range generate.Styles() {
			byCategory[s.Category] = append(byCategory[s.Category], s)
		}

		for _, category := range generate.Categories() {
			fmt.Println(color.New(color.Bold).Sprint(category))

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Default"})
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)

			for _, s := range byCategory[category] {
				def := ""
				if s.ID == generate.DefaultStyle {
					def = color.GreenString("yes")
				}
				table.Append([]string{s.ID, s.Name, def})
			}
			table.Render()
			fmt.Println()
		}
	},
}
