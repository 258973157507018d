package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ivlev/spritegrid/internal/classifier"
	"github.com/ivlev/spritegrid/internal/config"
	"github.com/ivlev/spritegrid/internal/engine"
	"github.com/ivlev/spritegrid/internal/gameconfig"
	"github.com/ivlev/spritegrid/internal/id"
	"github.com/ivlev/spritegrid/internal/storage/sqlite"
	"github.com/ivlev/spritegrid/internal/system"
)

var BuildVersion = "dev"

const usage = `spritegrid extracts sprites from spritesheets and assembles animations.

Usage:
  spritegrid [-config FILE] [-log-level LEVEL] <command> [flags]

Commands:
  detect    find sprites on a sheet, optionally assemble and save an animation set
  list      list saved sprite animations (or stored sheets with -sheets)
  export    write the configuration document as JSON or YAML
  import    replace the configuration document from an exported JSON file
  extract   crop the frames of a saved entity into PNG files
  play      loop one animation and write each rendered frame as PNG
  models    list vision models offered by the classifier
  delete    delete a saved sprite animation
`

// app содержит все, что нужно подкоманде.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	sheets  *sqlite.Store
	project *engine.SpriteProject
}

func main() {
	configPtr := flag.String("config", "", "Path to a YAML config file")
	logLevelPtr := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = BuildVersion
	if *logLevelPtr != "" {
		cfg.LogLevel = *logLevelPtr
	}
	logger := NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "[-] Неизвестная команда %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	defer a.close()

	start := time.Now()
	if err := run(ctx, a, args); err != nil {
		a.close()
		log.Fatalf("[-] %s: %v", cmd, err)
	}
	if cfg.ShowStats {
		fmt.Print(a.project.Stats().Report(cfg.BuildVersion, time.Since(start)))
	}
}

var commands = map[string]func(context.Context, *app, []string) error{
	"detect":  runDetect,
	"list":    runList,
	"export":  runExport,
	"import":  runImport,
	"extract": runExtract,
	"play":    runPlay,
	"models":  runModels,
	"delete":  runDelete,
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits(logger)

	// Создаем директорию данных, если ее нет
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	sheets, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sheet store: %w", err)
	}
	kv, err := gameconfig.OpenKV(cfg.AppName)
	if err != nil {
		sheets.Close()
		return nil, err
	}
	docs, err := gameconfig.OpenStore(kv, cfg.DocumentKey, id.NewID, gameconfig.WithStoreLogger(logger))
	if err != nil {
		sheets.Close()
		return nil, err
	}

	// Инициализируем зависимости
	client := classifier.NewClient(cfg.ClassifierURL,
		classifier.WithLogger(logger),
		classifier.WithHTTPClient(&http.Client{Timeout: cfg.ClassifierTimeout}),
	)
	project, err := engine.NewSpriteProject(cfg, engine.Deps{
		Sheets:     sheets,
		Documents:  docs,
		Classifier: client,
		Logger:     logger,
	})
	if err != nil {
		sheets.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, sheets: sheets, project: project}, nil
}

func (a *app) close() {
	a.project.Close()
	if err := a.sheets.Close(); err != nil {
		a.logger.Warn("close sheet store", "error", err)
	}
}

// multiFlag собирает повторяющиеся строковые флаги.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ", ") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }
