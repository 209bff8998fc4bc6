package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/choropleth/pkg/annotate"
	"github.com/matzehuels/choropleth/pkg/classify"
	"github.com/matzehuels/choropleth/pkg/config"
	"github.com/matzehuels/choropleth/pkg/palette"
)

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell. Besides commands and
flags it completes method, scale, palette, orientation and label-text values.

  source <(choropleth completion bash)
  choropleth completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.out()
			root := cmd.Root()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return root.GenBashCompletionV2(w, true)
		},
	}
}

// registerValueCompletions attaches value completions to the enumerated
// flags cmd defines.
func registerValueCompletions(cmd *cobra.Command) {
	values := map[string][]string{
		"orientation": {string(annotate.Vertical), string(annotate.Horizontal)},
		"label-text":  {config.LabelCode, config.LabelName, config.LabelValue},
	}
	for _, m := range classify.Methods {
		values["method"] = append(values["method"], string(m))
	}
	for _, k := range palette.Kinds {
		values["scale"] = append(values["scale"], string(k))
	}
	for _, s := range palette.Schemes("") {
		values["palette"] = append(values["palette"], s.Name+"\t"+string(s.Kind))
	}

	for name, vals := range values {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return vals, cobra.ShellCompDirectiveNoFileComp
		})
	}
}
