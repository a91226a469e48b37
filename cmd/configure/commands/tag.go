package commands

import (
	"encoding/json"
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/config"
	"github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/services/nlp"
	"github.com/benvon/smart-bookmarks/internal/tagging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTagCmd creates the tag command, which runs the tagging pipeline against a URL
func NewTagCmd() *cobra.Command {
	var (
		topN     int
		provider string
		asJSON   bool
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "tag <url>",
		Short: "Print the tag candidates generated for a URL",
		Long: "Fetch a page and run it through the tagging pipeline with the configured classifier " +
			"(NLP_PROVIDER and TAGGING_* settings). Nothing is stored.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topN < 0 {
				return fmt.Errorf("--top must not be negative")
			}
			cfg := config.Read()
			if provider == "" {
				provider = cfg.NLPProvider
			}

			log := zap.NewNop()
			if verbose {
				l, err := logger.NewDevelopmentLogger(true)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				defer func() { _ = l.Sync() }()
				log = l
			}

			svc := tagging.NewFromSettings(tagging.Settings{
				Provider: provider,
				Classifier: nlp.ProviderConfig{
					APIKey:        cfg.OpenAIKey,
					BaseURL:       cfg.AIBaseURL,
					Model:         cfg.AIModel,
					GazetteerPath: cfg.GazetteerPath,
					DebugMode:     verbose,
				},
				FetchTimeout:    cfg.FetchTimeout,
				MaxBodyBytes:    cfg.MaxBodyBytes,
				UserAgent:       cfg.TaggingUserAgent,
				ExtractFromHTML: cfg.ExtractFromHTML,
			}, log)

			candidates := svc.GenerateTags(cmd.Context(), args[0], topN)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				return enc.Encode(candidates)
			}
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No tag candidates.")
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topN, "top", tagging.DefaultTopN, "Maximum number of candidates")
	cmd.Flags().StringVar(&provider, "provider", "", "Classifier provider (defaults to NLP_PROVIDER)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print candidates as a JSON array")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages to stderr")
	return cmd
}
