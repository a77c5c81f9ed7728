// Command blockopt optimizes the basic blocks of a JSON block file.
//
//	blockopt [flags] [input output]
//
// Without arguments it reads quick_ext.json and writes blkopt.json, plus a
// dump of every block graph to DAG.txt. With -text the input is one block in
// textual three-address form, one instruction per line, and the optimized
// block is printed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/quadopt/blockfile"
	"github.com/sarchlab/quadopt/config"
	"github.com/sarchlab/quadopt/driver"
	"github.com/sarchlab/quadopt/instr"
)

var (
	configFlag = flag.String("config", "", "YAML configuration file")
	inFlag     = flag.String("in", "", "input block file")
	outFlag    = flag.String("out", "", "output block file")
	dagFlag    = flag.String("dag", "", "graph dump file, empty to skip")
	verifyFlag = flag.Bool("verify", false, "check every optimized block against the original")
	logFlag    = flag.String("log", "", "JSON log file, stderr if empty")
	levelFlag  = flag.String("log-level", "", "log level: trace, debug, info, warn or error")
	reportFlag = flag.String("report", "", "write the block report to this file")
	textFlag   = flag.Bool("text", false, "read a single block in textual form")
	liveFlag   = flag.String("live", "", "comma-separated live-out names for -text")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(2)
	}

	if err := setupLogging(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(2)
	}

	if *textFlag {
		err = runText(cfg)
	} else {
		err = runFile(cfg)
	}

	if err != nil {
		slog.Error("BlockoptFailed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input = *inFlag
		case "out":
			cfg.Output = *outFlag
		case "dag":
			cfg.DAG = *dagFlag
		case "verify":
			cfg.Verify = *verifyFlag
		case "log":
			cfg.Log = *logFlag
		case "log-level":
			cfg.LogLevel = *levelFlag
		}
	})

	if flag.NArg() == 2 {
		cfg.Input = flag.Arg(0)
		cfg.Output = flag.Arg(1)
	} else if flag.NArg() != 0 {
		return cfg, fmt.Errorf("expected an input and an output file, got %d arguments", flag.NArg())
	}

	return cfg, cfg.Validate()
}

func setupLogging(cfg config.Config) error {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if cfg.Log != "" {
		f, err := os.Create(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}

		atexit.Register(func() {
			f.Sync()
			f.Close()
		})
		w = f
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}

func newDriver(cfg config.Config) driver.Driver {
	b := driver.Builder{}.
		WithEngine(sim.NewSerialEngine()).
		WithFreq(1 * sim.GHz).
		WithSink(driver.LogSink{Logger: slog.Default()}).
		WithLogger(slog.Default()).
		WithDump(cfg.DAG != "")

	if cfg.Verify {
		b = b.WithVerify(cfg.Trials, cfg.Seed)
	}

	return b.Build("Driver")
}

func runFile(cfg config.Config) error {
	f, err := blockfile.Load(cfg.Input)
	if err != nil {
		return err
	}

	d := newDriver(cfg)
	report, runErr := d.RunFile(f)

	if err := f.Save(cfg.Output); err != nil {
		return err
	}

	if err := writeDump(cfg.DAG, d.Results()); err != nil {
		return err
	}

	if *reportFlag != "" {
		if err := report.SaveReportToFile(*reportFlag); err != nil {
			return err
		}
	} else if cfg.Verify {
		report.WriteReport(os.Stdout)
	}

	return runErr
}

func runText(cfg config.Config) error {
	lines, err := readLines(cfg.Input)
	if err != nil {
		return err
	}

	code, err := instr.ParseBlock(lines)
	if err != nil {
		return err
	}

	var live []string
	for _, name := range strings.Split(*liveFlag, ",") {
		if name = strings.TrimSpace(name); name != "" {
			live = append(live, name)
		}
	}

	d := newDriver(cfg)
	d.Enqueue(driver.Job{ID: "0", Code: code, LiveOut: live})
	if err := d.Run(); err != nil {
		return err
	}

	r := d.Results()[0]
	if r.Err != nil {
		return r.Err
	}

	if err := writeDump(cfg.DAG, d.Results()); err != nil {
		return err
	}

	for _, line := range instr.FormatBlock(r.Code) {
		fmt.Println(line)
	}

	return nil
}

func readLines(path string) ([]string, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	return lines, scanner.Err()
}

func writeDump(path string, results []driver.Result) error {
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer f.Close()

	return driver.WriteDump(f, results)
}
