package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // profiling
	"os"
	"runtime/pprof"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"elfstat/internal/analysis"
	"elfstat/internal/config"
	"elfstat/internal/disasm"
	"elfstat/internal/elfstat/log"
	"elfstat/internal/elfstat/styles"
	"elfstat/internal/elfx"
)

const (
	markdownWidth = 100
	pprofAddr     = "localhost:6060"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "elfstat [file]",
		Short: "Instruction frequency report for ELF binaries",
		Long: `elfstat disassembles the code section of an ELF binary and reports how often
each instruction mnemonic occurs, together with the SHA-256 of the file.
The report is a single JSON object on stdout; diagnostics go to stderr.

Environment:
  ELFSTAT_LOG_LEVEL    debug, info, warn or error
  ELFSTAT_LOG_TO_FILE  1 to append diagnostics to elfstat-<time>-debug.log
  ELFSTAT_NO_COLOR     disable colour in the listing
  ELFSTAT_PROFILE      serve net/http/pprof on localhost:6060 while running`,
		Example: `
# Analyze a binary
elfstat /bin/ls

# Count AT&T mnemonics of a 32-bit object, addresses taken from sh_addr
elfstat --mode 32 --syntax gnu --address vaddr prog.o

# Human readable summary
elfstat -o markdown /bin/ls
  `,
		Args: exactlyOneFile,
		RunE: runRoot,
	}

	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress diagnostics")
	rootCmd.PersistentFlags().String("config", "", "TOML file with default flag values")

	rootCmd.PersistentFlags().StringP("section", "s", elfx.DefaultCodeSection, "Code section to analyze")
	rootCmd.PersistentFlags().IntP("mode", "m", disasm.DefaultMode, "x86 decoder mode: 16, 32 or 64")
	rootCmd.PersistentFlags().String("syntax", string(disasm.SyntaxIntel), "Mnemonic syntax: intel or gnu")
	rootCmd.PersistentFlags().String("address", string(analysis.AddressOffset), "Instruction base address: offset (file-relative) or vaddr (sh_addr)")
	rootCmd.PersistentFlags().Bool("partial", false, "Stop at the first undecodable instruction and report what was decoded before it")
	rootCmd.PersistentFlags().String("symbol", analysis.DefaultSymbol, "Symbol to locate in the diagnostics")

	rootCmd.Flags().StringP("format", "o", "json", "Output format: json or markdown")
	rootCmd.Flags().BoolP("pretty", "p", false, "Indent JSON output")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.SetFlagErrorFunc(flagUsageError)

	rootCmd.AddCommand(newListingCmd(), newSchemaCmd())
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	opts, err := prepare(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "json" && format != "markdown" && format != "md" {
		return usageErrorf("unknown format %q (want json or markdown)", format)
	}

	stop, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stop()

	res, err := analysis.Run(analysis.Request{Path: args[0]}, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		pretty, _ := cmd.Flags().GetBool("pretty")
		return res.WriteJSON(out, pretty)
	}

	md := res.Markdown()
	if isTerminal(out) {
		md = styles.Render(md, markdownWidth)
	}
	_, err = fmt.Fprint(out, md)
	return err
}

// prepare performs the steps shared by every analysis command: config file,
// flag validation, logging setup and working directory. Config and flag
// errors are usage errors.
func prepare(cmd *cobra.Command) (analysis.Options, error) {
	if err := applyConfig(cmd); err != nil {
		return analysis.Options{}, &UsageError{Err: err}
	}

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return analysis.Options{}, &UsageError{Err: err}
	}
	opts.RunID = ulid.Make().String()

	cmd.SilenceUsage = true

	debug, _ := cmd.Flags().GetBool("debug")
	log.Setup(debug)

	if _, err := ResolveCwd(cmd); err != nil {
		return analysis.Options{}, err
	}
	return opts, nil
}

func applyConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil
	}
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	return f.Apply(cmd.Flags())
}

func optionsFromFlags(cmd *cobra.Command) (analysis.Options, error) {
	flags := cmd.Flags()

	section, _ := flags.GetString("section")
	mode, _ := flags.GetInt("mode")
	partial, _ := flags.GetBool("partial")
	symbol, _ := flags.GetString("symbol")
	quiet, _ := flags.GetBool("quiet")

	syntaxFlag, _ := flags.GetString("syntax")
	syntax, err := disasm.ParseSyntax(syntaxFlag)
	if err != nil {
		return analysis.Options{}, err
	}

	addressFlag, _ := flags.GetString("address")
	address, err := analysis.ParseAddressMode(addressFlag)
	if err != nil {
		return analysis.Options{}, err
	}

	if _, err := disasm.NewX86Decoder(mode, syntax); err != nil {
		return analysis.Options{}, err
	}

	opts := analysis.Options{
		Section: section,
		Mode:    mode,
		Syntax:  syntax,
		Address: address,
		Partial: partial,
		Symbol:  symbol,
	}
	if quiet {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return opts, nil
}

// startProfiling honours --cpuprofile and --memprofile. The returned func
// stops the CPU profile and writes the heap profile.
func startProfiling(cmd *cobra.Command) (func(), error) {
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	memprofile, _ := cmd.Flags().GetString("memprofile")

	var cpuFile *os.File
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		cpuFile = f
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		f, err := os.Create(memprofile)
		if err != nil {
			slog.Error("could not create memory profile", "error", err)
			return
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			slog.Error("could not write memory profile", "error", err)
		}
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// Execute runs the command line and exits with the matching status code.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if srv := startPprofServer(); srv != nil {
		defer srv.Close()
	}
	defer func() {
		if err := log.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close log file:", err)
		}
	}()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)

	// Use cobra directly when output is being piped to avoid fang's styling
	if !term.IsTerminal(os.Stdout.Fd()) {
		return ExitCode(rootCmd.Execute())
	}

	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	)
	return ExitCode(err)
}

// startPprofServer serves net/http/pprof on pprofAddr when ELFSTAT_PROFILE is
// set. It returns nil otherwise.
func startPprofServer() *http.Server {
	if os.Getenv("ELFSTAT_PROFILE") == "" {
		return nil
	}
	srv := &http.Server{Addr: pprofAddr, Handler: http.DefaultServeMux}
	go func() {
		slog.Info("Serving pprof", "addr", pprofAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to pprof listen", "error", err)
		}
	}()
	return srv
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %w", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return cwd, nil
}
