package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/ui"
)

var optionsCmd = &cobra.Command{
	Use:   "options [itemtype]",
	Short: "List itemtypes or the search options of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			itemtypes := reg.Itemtypes()
			if isJSONOutput() {
				outputSuccess(out, map[string]any{"itemtypes": itemtypes}, nil, &Meta{Count: len(itemtypes)})
				return nil
			}
			for _, it := range itemtypes {
				e, _ := reg.Entity(it)
				fmt.Fprintf(out, "%-12s %s\n", it, ui.Hint(e.Table))
			}
			return nil
		}

		set, err := reg.Options(args[0])
		if err != nil {
			return err
		}
		if isJSONOutput() {
			type optionJSON struct {
				ID       int    `json:"id"`
				Name     string `json:"name"`
				Table    string `json:"table"`
				Field    string `json:"field"`
				Datatype string `json:"datatype"`
				NoSearch bool   `json:"nosearch,omitempty"`
				NoMeta   bool   `json:"nometa,omitempty"`
				Grouped  bool   `json:"aggregated,omitempty"`
			}
			list := make([]optionJSON, 0, set.Len())
			for _, o := range set.All() {
				list = append(list, optionJSON{
					ID:       o.ID,
					Name:     o.Name,
					Table:    o.Table,
					Field:    o.Field,
					Datatype: string(o.Datatype),
					NoSearch: o.Flags.NoSearch,
					NoMeta:   o.Flags.NoMeta,
					Grouped:  o.OneToMany(),
				})
			}
			outputSuccess(out, map[string]any{
				"itemtype": set.Itemtype(),
				"view":     set.ViewFields(),
				"options":  list,
			}, nil, &Meta{Count: len(list)})
			return nil
		}

		writeTable(out, ui.OptionsTable(ui.NewDisplay(), set))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}
