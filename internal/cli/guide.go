package cli

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	builtindocs "github.com/aidanlsb/assetsearch/docs"
	"github.com/aidanlsb/assetsearch/internal/ui"
)

const guideDir = "guide"

type guideIndex struct {
	Title  string       `yaml:"title" json:"title"`
	Topics []guideTopic `yaml:"topics" json:"topics"`
}

type guideTopic struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Path  string `yaml:"path" json:"path"`
}

var guideCmd = &cobra.Command{
	Use:   "guide [topic]",
	Short: "Read the bundled guide",
	Long: `Read the long-form guide bundled into asq: criteria syntax, search
types, catalog files and configuration. Without a topic, list the topics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := loadGuideIndex(builtindocs.FS)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			if isJSONOutput() {
				outputSuccess(out, index, nil, &Meta{Count: len(index.Topics)})
				return nil
			}
			fmt.Fprintln(out, ui.Header(index.Title))
			for _, t := range index.Topics {
				fmt.Fprintf(out, "  %-14s %s\n", t.ID, t.Title)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.Hint("Read a topic with 'asq guide <topic>'"))
			return nil
		}

		topic, ok := index.find(args[0])
		if !ok {
			ids := make([]string, len(index.Topics))
			for i, t := range index.Topics {
				ids[i] = t.ID
			}
			return &cliError{
				code:       ErrNotFound,
				err:        fmt.Errorf("unknown guide topic %q", args[0]),
				suggestion: "Topics: " + strings.Join(ids, ", "),
			}
		}
		content, err := fs.ReadFile(builtindocs.FS, path.Join(guideDir, topic.Path))
		if err != nil {
			return err
		}

		if isJSONOutput() {
			outputSuccess(out, map[string]any{
				"topic":   topic.ID,
				"title":   topic.Title,
				"content": string(content),
			}, nil, nil)
			return nil
		}

		rendered := string(content)
		if display := ui.NewDisplay(); display.IsTTY {
			if r, err := ui.RenderMarkdown(rendered, display.Width); err == nil {
				rendered = r
			}
		}
		fmt.Fprint(out, rendered)
		if !strings.HasSuffix(rendered, "\n") {
			fmt.Fprintln(out)
		}
		return nil
	},
}

func loadGuideIndex(fsys fs.FS) (*guideIndex, error) {
	data, err := fs.ReadFile(fsys, path.Join(guideDir, "index.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read guide index: %w", err)
	}
	var index guideIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse guide index: %w", err)
	}
	return &index, nil
}

func (g *guideIndex) find(id string) (guideTopic, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range g.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return guideTopic{}, false
}

func init() {
	rootCmd.AddCommand(guideCmd)
}
