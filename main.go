// thriftex reconstructs Thrift IDL from decompiled, obfuscated Java sources.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apkscope/thriftex/internal/corpus"
	"github.com/apkscope/thriftex/internal/emit"
	"github.com/apkscope/thriftex/internal/engine"
)

var version = "dev"

var (
	outputPath  string
	reportPath  string
	namespace   string
	jobs        int
	maxFileSize int
	logLevel    string
	configFile  string
)

var rootCmd = &cobra.Command{
	Use:   "thriftex <sources-root>",
	Short: "Recover Thrift IDL from decompiled Java sources",
	Long: `thriftex scans a tree of decompiled Java sources for the artifacts a
Thrift code generator leaves behind (descriptor constants, read loops,
dispatch tables, debug strings) and reconstructs the enums, structs and
service definitions they encode, emitting a compilable .thrift file.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "recovered.thrift", "path of the emitted IDL file")
	flags.StringVar(&reportPath, "report", "", "also write a JSON capture report to this path")
	flags.StringVar(&namespace, "namespace", "", "java namespace to declare in the output")
	flags.IntVarP(&jobs, "jobs", "j", 0, "extraction workers (0 = number of CPUs)")
	flags.IntVar(&maxFileSize, "max-file-size", corpus.DefaultMaxFileSize, "skip source files larger than this many bytes")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVarP(&configFile, "config", "c", "", "config file (default .thriftex.yaml in the sources root)")

	viper.BindPFlag("output", flags.Lookup("output"))
	viper.BindPFlag("report", flags.Lookup("report"))
	viper.BindPFlag("namespace", flags.Lookup("namespace"))
	viper.BindPFlag("jobs", flags.Lookup("jobs"))
	viper.BindPFlag("max_file_size", flags.Lookup("max-file-size"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.SetEnvPrefix("THRIFTEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(root string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	} else {
		viper.SetConfigName(".thriftex")
		viper.AddConfigPath(root)
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q", viper.GetString("log_level"))
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	entries, err := corpus.Load(root, corpus.Options{MaxFileSize: viper.GetInt("max_file_size")})
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no Java sources found under %s", root)
	}
	log.WithField("entries", len(entries)).Info("corpus loaded")

	result, err := engine.Run(entries, engine.Options{
		Jobs:   viper.GetInt("jobs"),
		Logger: log,
	})
	if err != nil {
		return err
	}

	out := viper.GetString("output")
	idl := emit.Encode(result.Registry, viper.GetString("namespace"))
	if err := os.WriteFile(out, []byte(idl+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	log.WithField("path", out).Info("IDL written")

	if rp := viper.GetString("report"); rp != "" {
		rep := emit.Build(result.Registry, result.Refs, emit.Meta{
			Root:         filepath.Clean(root),
			Output:       out,
			Entries:      result.Entries,
			Unrecognized: result.Unrecognized,
		})
		data, err := rep.Marshal()
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		if err := os.WriteFile(rp, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", rp, err)
		}
		log.WithField("path", rp).Info("report written")
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
