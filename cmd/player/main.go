package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/assessment/httpsubmit"
	"github.com/rauth/examprep-backend/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "player",
		Short:         "Take a quiz or mock exam in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(runCmd())
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a timed quiz or mock exam",
		Example: `  player run --file questions.yaml --kind quiz
  player run --content-id 665f1c... --kind exam --api-url http://localhost:8080/api/v1 --token $TOKEN`,
		RunE: runPlayer,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Question file (.yaml, .yml or .json)")
	f.StringP("kind", "k", string(assessment.KindQuiz), "Assessment kind (quiz, exam)")
	f.IntP("duration", "d", 0, "Duration in seconds (0 = from content or policy default)")
	f.String("api-url", os.Getenv("PLAYER_API_URL"), "Progress and content API base URL, e.g. http://localhost:8080/api/v1 (or set PLAYER_API_URL)")
	f.String("token", os.Getenv("PLAYER_TOKEN"), "Bearer token for saving results (or set PLAYER_TOKEN)")
	f.String("content-id", "", "Content id; fetched from --api-url when --file is not given")
	f.Bool("no-color", false, "Disable colored output")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}

func runPlayer(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	file, _ := f.GetString("file")
	kindFlag, _ := f.GetString("kind")
	duration, _ := f.GetInt("duration")
	apiURL, _ := f.GetString("api-url")
	token, _ := f.GetString("token")
	contentID, _ := f.GetString("content-id")
	noColor, _ := f.GetBool("no-color")
	logLevel, _ := f.GetString("log-level")

	log := logger.SetupWriter(logLevel, "pretty", os.Stderr)

	kind := assessment.Kind(kindFlag)
	if !kind.Valid() {
		return fmt.Errorf("--kind must be quiz or exam, got %q", kindFlag)
	}
	if duration < 0 {
		return errors.New("--duration must not be negative")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		set *questionSet
		err error
	)
	switch {
	case file != "":
		set, err = loadFile(file)
	case contentID != "" && apiURL != "":
		if token == "" {
			return errors.New("--token is required to fetch content with answers")
		}
		set, err = fetchContent(ctx, apiURL, token, kind, contentID)
	default:
		return errors.New("give --file, or --content-id with --api-url")
	}
	if err != nil {
		return err
	}
	if contentID == "" {
		contentID = set.Title
	}

	questions := set.Questions

	explicit := set.DurationSeconds
	if duration > 0 {
		explicit = duration
	}
	cfg := assessment.SessionConfig{
		Kind:            kind,
		ContentID:       contentID,
		DurationSeconds: assessment.DefaultDurationPolicy().Resolve(kind, len(questions), explicit),
	}

	opts := []assessment.Option{assessment.WithLogger(log)}
	if apiURL != "" {
		// Without a token the session scores locally and reports skipped.
		opts = append(opts,
			assessment.WithSubmitter(httpsubmit.NewWithTimeout(apiURL, 10*time.Second)),
			assessment.WithCredential(token),
		)
	}

	p := newPlayer(os.Stdin, cmd.OutOrStdout(), noColor)
	opts = append(opts, assessment.WithHooks(p.hooks()))

	sess, err := assessment.NewSession(cfg, questions, opts...)
	if err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sess.Abandon()
	}()

	p.play(sess, set.Title)

	res, err := sess.Result()
	if err != nil {
		return err
	}
	status := p.awaitSubmission(context.Background(), sess, 15*time.Second)
	renderResult(cmd.OutOrStdout(), res, questions, status, noColor)
	return nil
}
