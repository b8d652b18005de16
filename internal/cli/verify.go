package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/retrieve"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verifyFile     string
	verifyURL      string
	verifyImage    string
	verifyImageURL string
	verifyExplain  bool
	verifyAll      bool
	outJSON        string
	outMD          string
	verifyTimeout  time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Verify the claims in a text, file, web page or image",
	Long: `Verify extracts factual claims from the input and checks the first one
(or every one, with --all-claims) against retrieved evidence.

Exactly one input is used: the text argument, --file, --url, --image or
--image-url. With no input, text is read from stdin.

Example:
  claimcheck verify "NASA launched Artemis I in 2022."
  claimcheck verify --file article.txt --json report.json --md report.md
  claimcheck verify --url https://example.com/news/story --all-claims
  claimcheck verify --image screenshot.png --explain=false`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "read the article from a file")
	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "fetch the article from a web page")
	verifyCmd.Flags().StringVar(&verifyImage, "image", "", "read the article from an image file (OCR)")
	verifyCmd.Flags().StringVar(&verifyImageURL, "image-url", "", "read the article from a remote image (OCR)")
	verifyCmd.Flags().BoolVar(&verifyExplain, "explain", true, "include the explanation bundle")
	verifyCmd.Flags().BoolVar(&verifyAll, "all-claims", false, "verify every extracted claim, not just the first")
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write the JSON report to a path ('-' for stdout)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "write the Markdown report to a path")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
}

// input is the resolved source of one verify run
type input struct {
	text     string
	image    []byte
	filename string
	imageURL string
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	in, err := resolveInput(ctx, cfg, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, err := pipeline.NewFromConfig(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	results, err := runInput(ctx, p, in)
	if len(results) == 0 {
		return describeFailure(err)
	}
	if err != nil {
		logger.Warn("some claims could not be verified", zap.Error(err))
	}

	return writeReports(cmd.OutOrStdout(), results)
}

// resolveInput picks the single configured input source
func resolveInput(ctx context.Context, cfg *model.Config, args []string, stdin io.Reader) (input, error) {
	set := 0
	for _, v := range []string{verifyFile, verifyURL, verifyImage, verifyImageURL} {
		if v != "" {
			set++
		}
	}
	if len(args) > 0 {
		set++
	}
	if set > 1 {
		return input{}, errors.New("use only one of: text argument, --file, --url, --image, --image-url")
	}

	switch {
	case len(args) > 0:
		return input{text: args[0]}, nil
	case verifyFile != "":
		data, err := os.ReadFile(verifyFile)
		if err != nil {
			return input{}, fmt.Errorf("read %s: %w", verifyFile, err)
		}
		return input{text: string(data)}, nil
	case verifyURL != "":
		fetcher := retrieve.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
		text, err := fetcher.FetchText(ctx, verifyURL)
		if err != nil {
			return input{}, fmt.Errorf("fetch %s: %w", verifyURL, err)
		}
		return input{text: text}, nil
	case verifyImage != "":
		data, err := os.ReadFile(verifyImage)
		if err != nil {
			return input{}, fmt.Errorf("read %s: %w", verifyImage, err)
		}
		return input{image: data, filename: filepath.Base(verifyImage)}, nil
	case verifyImageURL != "":
		return input{imageURL: verifyImageURL}, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return input{}, fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return input{}, errors.New("no input: pass text, --file, --url, --image or --image-url")
	}
	return input{text: text}, nil
}

func runInput(ctx context.Context, p *pipeline.Pipeline, in input) ([]*model.VerificationResult, error) {
	var (
		res *model.VerificationResult
		err error
	)
	switch {
	case in.image != nil:
		res, err = p.VerifyImage(ctx, in.image, in.filename, verifyExplain)
	case in.imageURL != "":
		res, err = p.VerifyImageURL(ctx, in.imageURL, verifyExplain)
	case verifyAll:
		return p.VerifyAllClaims(ctx, in.text, verifyExplain)
	default:
		res, err = p.Verify(ctx, in.text, verifyExplain)
	}
	if err != nil {
		return nil, err
	}
	return []*model.VerificationResult{res}, nil
}

// describeFailure rewords input failures for the terminal
func describeFailure(err error) error {
	switch {
	case err == nil:
		return errors.New("nothing was verified")
	case errors.Is(err, pipeline.ErrNoClaimsExtracted):
		return errors.New("no verifiable claims found in the input")
	case errors.Is(err, pipeline.ErrNoValidEvidence):
		return errors.New("no valid news sources found for the claim")
	case errors.Is(err, pipeline.ErrNoTextExtracted):
		return errors.New("no text could be read from the image")
	}
	return fmt.Errorf("verification failed: %w", err)
}

func writeReports(stdout io.Writer, results []*model.VerificationResult) error {
	r := pipeline.NewRenderer()

	var report any = results
	if len(results) == 1 {
		report = results[0]
	}

	switch outJSON {
	case "":
	case "-":
		if err := r.WriteJSON(stdout, report); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	default:
		if err := r.RenderJSON(report, outJSON); err != nil {
			return err
		}
	}

	if outMD != "" {
		if err := r.RenderMarkdown(results, outMD); err != nil {
			return err
		}
	}

	if outJSON != "-" {
		for i, res := range results {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			r.RenderSummary(stdout, res)
		}
	}
	return nil
}
