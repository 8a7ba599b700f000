package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

type Config struct {
	// viewport
	BaseIterations    int
	IterationCap      int
	IterationStep     int
	DynamicIterations bool
	Oversampling      int
	HistoryCapacity   int

	// scheduler
	Debounce      time.Duration
	RenderTimeout time.Duration

	// engine
	Workers int

	// ui
	ViewSplit int
	ExportDir string

	StatsEnabled bool
	StatsWindow  int

	AltScreen bool
}

var config = Config{
	BaseIterations:    500,
	IterationCap:      50000,
	IterationStep:     100,
	DynamicIterations: true,
	Oversampling:      1,
	HistoryCapacity:   20,

	Debounce:      100 * time.Millisecond,
	RenderTimeout: 30 * time.Second,

	Workers: 0,

	ViewSplit: 30,
	ExportDir: ".",

	StatsEnabled: true,
	StatsWindow:  64,

	AltScreen: true,
}

func main() {
	log.SetOutput(os.Stdout)
	flag.IntVar(&config.BaseIterations, "iterations", config.BaseIterations, "Base iteration budget at zoom level 1.0")
	flag.IntVar(&config.IterationCap, "iteration-cap", config.IterationCap, "Upper bound on the dynamic iteration budget")
	flag.IntVar(&config.IterationStep, "iteration-step", config.IterationStep, "Step size for the iteration keys")
	flag.BoolVar(&config.DynamicIterations, "dynamic-iterations", config.DynamicIterations, "Scale the iteration budget with zoom depth")
	flag.IntVar(&config.Oversampling, "oversampling", config.Oversampling, "Supersampling factor [1,3]")
	flag.IntVar(&config.HistoryCapacity, "history", config.HistoryCapacity, "Number of past views kept in the navigation history")
	flag.DurationVar(&config.Debounce, "debounce", config.Debounce, "Delay collapsing bursts of view changes into one render")
	flag.DurationVar(&config.RenderTimeout, "render-timeout", config.RenderTimeout, "Abandon a render after this long (0 = never)")
	flag.IntVar(&config.Workers, "workers", config.Workers, "Render worker goroutines (0 = GOMAXPROCS)")
	flag.IntVar(&config.ViewSplit, "view-split", config.ViewSplit, "Split the view at this % of the total screen width [20,80]")
	flag.StringVar(&config.ExportDir, "export-dir", config.ExportDir, "Directory PNG exports are written to")
	flag.BoolVar(&config.StatsEnabled, "stats", config.StatsEnabled, "Show render performance stats")
	flag.IntVar(&config.StatsWindow, "stats-window", config.StatsWindow, "Number of recent render timings kept")
	flag.BoolVar(&config.AltScreen, "alt-screen", config.AltScreen, "Use the terminal alternate screen buffer")

	flag.Parse()

	if err := validateAndNormalizeConfig(); err != nil {
		log.Fatal(err)
	}

	if !term.IsTerminal(os.Stdout.Fd()) {
		log.Fatal("mandelscope needs an interactive terminal")
	}

	engine := newEngine(config.Workers)
	scheduler := newRenderScheduler(engine.Render, config.Debounce, config.RenderTimeout)
	defer scheduler.Close()

	history := newHistoryStack(config.HistoryCapacity)
	viewport, err := newViewport(80, 48, config, history)
	if err != nil {
		log.Fatal(err)
	}

	metrics := newRenderMetrics(config.StatsWindow)
	metrics.setEnabled(config.StatsEnabled)

	m := newModel(viewport, history, scheduler, metrics)
	opts := []tui.ProgramOption{tui.WithInputTTY(), tui.WithMouseCellMotion()}
	if config.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	if _, err := tui.NewProgram(m, opts...).Run(); err != nil {
		log.Fatal(err)
	}
}

func validateAndNormalizeConfig() error {
	if config.BaseIterations < 1 {
		return fmt.Errorf("-iterations must be >= 1")
	}
	if config.IterationCap < config.BaseIterations {
		return fmt.Errorf("-iteration-cap must be >= -iterations")
	}
	if config.IterationStep < 1 {
		return fmt.Errorf("-iteration-step must be >= 1")
	}
	if config.Oversampling < 1 || config.Oversampling > 3 {
		return fmt.Errorf("-oversampling must be in [1,3]")
	}
	if config.HistoryCapacity < 1 {
		return fmt.Errorf("-history must be >= 1")
	}
	if config.Debounce <= 0 {
		return fmt.Errorf("-debounce must be > 0")
	}
	if config.RenderTimeout < 0 {
		return fmt.Errorf("-render-timeout must be >= 0")
	}
	if config.Workers < 0 {
		return fmt.Errorf("-workers must be >= 0")
	}
	if info, err := os.Stat(config.ExportDir); err != nil || !info.IsDir() {
		return fmt.Errorf("-export-dir must be an existing directory")
	}
	if config.StatsWindow < 16 {
		config.StatsWindow = 16
	}
	config.ViewSplit = max(20, config.ViewSplit)
	config.ViewSplit = min(80, config.ViewSplit)
	return nil
}
