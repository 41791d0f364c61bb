// Command judge is the submission evaluation worker. "judge run" starts
// the consume loop; the other subcommands are operator tooling around the
// same store and queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/programme-lv/judge/internal/artifacts"
	"github.com/programme-lv/judge/internal/config"
	"github.com/programme-lv/judge/internal/events"
	"github.com/programme-lv/judge/internal/health"
	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/lang"
	"github.com/programme-lv/judge/internal/logging"
	"github.com/programme-lv/judge/internal/queue"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/store"
	"github.com/programme-lv/judge/internal/subm"
	"github.com/programme-lv/judge/internal/worker"
)

func main() {
	root := &cli.Command{
		Name:  "judge",
		Usage: "code submission evaluation worker",
		Commands: []*cli.Command{
			runCommand(),
			checkCommand(),
			seedCommand(),
			requeueStaleCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "consume the queue and evaluate submissions",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			st, err := store.NewPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()
			q, err := queue.New(ctx, queue.Config{
				Kind:          cfg.QueueKind,
				RedisAddr:     cfg.RedisAddr,
				RedisPassword: cfg.RedisPassword,
				RedisKey:      cfg.RedisKey,
				SQSQueueURL:   cfg.SQSQueueURL,
			})
			if err != nil {
				return err
			}
			defer q.Close()
			runner, err := sandbox.New(sandbox.Config{
				Kind:        cfg.SandboxKind,
				IsolatePath: cfg.IsolatePath,
			})
			if err != nil {
				return err
			}

			var publisher *events.Publisher
			if cfg.NatsURL != "" {
				publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsSubject, log)
				if err != nil {
					return err
				}
				defer publisher.Close()
			}
			var archive *artifacts.Archive
			if cfg.ArtifactRoot != "" {
				archive, err = artifacts.NewArchive(cfg.ArtifactRoot)
				if err != nil {
					return err
				}
			}

			j := judge.New(registry, runner, cfg.WorkRoot, archive, log)

			workers := make([]*worker.Worker, cfg.Workers)
			for i := range workers {
				workers[i] = worker.New(q, st, j, publisher, log.With("worker", i))
			}
			inFlight := func() int {
				total := 0
				for _, w := range workers {
					total += w.InFlight()
				}
				return total
			}

			group, groupCtx := errgroup.WithContext(ctx)
			for _, w := range workers {
				group.Go(func() error { return w.Run(groupCtx) })
			}
			group.Go(func() error {
				return health.NewServer(cfg.HealthAddr, st, q, inFlight, log).Run(groupCtx)
			})
			log.Info("judge started", "workers", cfg.Workers, "queue", cfg.QueueKind, "sandbox", cfg.SandboxKind)
			return group.Wait()
		},
	}
}

// checkCommand compiles and runs each language's hello world program
// through the real sandbox, so operators can verify a host before pointing
// the queue at it.
func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "verify the sandbox and language toolchains on this host",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "lang", Usage: "check a single language id"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			runner, err := sandbox.New(sandbox.Config{
				Kind:        cfg.SandboxKind,
				IsolatePath: cfg.IsolatePath,
			})
			if err != nil {
				return err
			}
			j := judge.New(registry, runner, cfg.WorkRoot, nil, log)

			profiles := registry.All()
			if id := cmd.Int("lang"); id != 0 {
				p, err := registry.Resolve(int(id))
				if err != nil {
					return err
				}
				profiles = []lang.Profile{p}
			}

			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			failed := 0
			for _, p := range profiles {
				expected := "hello"
				res := j.Evaluate(ctx, &subm.Submission{
					SourceCode:     p.HelloWorld,
					LanguageID:     p.ID,
					ExpectedOutput: &expected,
					TimeLimitMs:    10000,
					MemLimitKiB:    512 * 1024,
				})
				if res.Status == subm.StatusAccepted {
					fmt.Printf("%s %3d %s\n", ok("PASS"), p.ID, p.Name)
					continue
				}
				failed++
				fmt.Printf("%s %3d %s: %s\n", bad("FAIL"), p.ID, p.Name, res.Status)
				if res.CompileOutput != "" {
					fmt.Println(indent(res.CompileOutput))
				}
				if res.Message != "" {
					fmt.Println(indent(res.Message))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d language(s) failed the check", failed)
			}
			return nil
		},
	}
}

// seedCommand inserts a submission and pushes its id, standing in for the
// intake API during development.
func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert a submission from a source file and enqueue it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "path to the source file", Required: true},
			&cli.IntFlag{Name: "lang", Usage: "language id", Required: true},
			&cli.StringFlag{Name: "stdin", Usage: "standard input for the program"},
			&cli.StringFlag{Name: "expected", Usage: "expected stdout, omit for run-only"},
			&cli.IntFlag{Name: "time-limit-ms", Value: 2000},
			&cli.IntFlag{Name: "mem-limit-kib", Value: 262144},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			source, err := os.ReadFile(cmd.String("file"))
			if err != nil {
				return err
			}
			st, err := store.NewPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()
			q, err := queue.New(ctx, queue.Config{
				Kind:          cfg.QueueKind,
				RedisAddr:     cfg.RedisAddr,
				RedisPassword: cfg.RedisPassword,
				RedisKey:      cfg.RedisKey,
				SQSQueueURL:   cfg.SQSQueueURL,
			})
			if err != nil {
				return err
			}
			defer q.Close()

			s := &subm.Submission{
				SourceCode:  string(source),
				LanguageID:  int(cmd.Int("lang")),
				Stdin:       cmd.String("stdin"),
				TimeLimitMs: int(cmd.Int("time-limit-ms")),
				MemLimitKiB: int(cmd.Int("mem-limit-kib")),
			}
			if cmd.IsSet("expected") {
				expected := cmd.String("expected")
				s.ExpectedOutput = &expected
			}
			id, err := st.Insert(ctx, s)
			if err != nil {
				return err
			}
			if err := q.Push(ctx, id); err != nil {
				return err
			}
			fmt.Println("submission", id, "enqueued")
			return nil
		},
	}
}

// requeueStaleCommand recovers rows stuck in processing after a worker
// died mid evaluation. Recovered ids go back onto the queue; workers only
// act on queue messages, so the status flip alone is not enough.
func requeueStaleCommand() *cli.Command {
	return &cli.Command{
		Name:  "requeue-stale",
		Usage: "requeue submissions stuck in processing",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "age", Value: 10 * time.Minute, Usage: "minimum time since the last update"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			st, err := store.NewPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()
			q, err := queue.New(ctx, queue.Config{
				Kind:          cfg.QueueKind,
				RedisAddr:     cfg.RedisAddr,
				RedisPassword: cfg.RedisPassword,
				RedisKey:      cfg.RedisKey,
				SQSQueueURL:   cfg.SQSQueueURL,
			})
			if err != nil {
				return err
			}
			defer q.Close()
			n, err := worker.Requeue(ctx, st, q, cmd.Duration("age"))
			if err != nil {
				return err
			}
			fmt.Println("requeued", n, "submission(s)")
			return nil
		},
	}
}

func buildRegistry(cfg *config.Config) (*lang.Registry, error) {
	if cfg.LanguageFile == "" {
		return lang.NewRegistry(), nil
	}
	extra, err := lang.LoadFile(cfg.LanguageFile)
	if err != nil {
		return nil, err
	}
	return lang.NewRegistry(extra...), nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "       " + l
	}
	return strings.Join(lines, "\n")
}
