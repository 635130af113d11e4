// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Command sassc is a thin command-line front end over package sass. It
// is a consumer of the library, not part of its core: none of its flag
// parsing or configuration loading has any bearing on the Dispatcher's
// concurrency or protocol invariants.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	host "github.com/sassembedded/host"
)

// styleFlag adapts host.Style to pflag.Value so --style rejects
// anything but "expanded" or "compressed" at parse time instead of
// silently falling back to expanded.
type styleFlag struct {
	value host.Style
}

func (f *styleFlag) String() string {
	return f.value.String()
}

func (f *styleFlag) Set(s string) error {
	switch s {
	case "expanded":
		f.value = host.StyleExpanded
	case "compressed":
		f.value = host.StyleCompressed
	default:
		return fmt.Errorf("must be %q or %q", "expanded", "compressed")
	}
	return nil
}

func (f *styleFlag) Type() string {
	return "style"
}

var (
	flagExePath      string
	flagStyle        = &styleFlag{value: host.StyleExpanded}
	flagCharset      bool
	flagSourceMap    bool
	flagQuietDeps    bool
	flagVerbose      bool
	flagAlertColor   bool
	flagAlertAscii   bool
	flagLoadPaths    []string
	flagConfig       string
	flagStringSource string
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "sassc",
		Short:        "sassc drives an embedded Sass compiler",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a .sassc.yaml config file")
	root.PersistentFlags().StringVar(&flagExePath, "exe-path", "dart-sass-embedded", "path to the compiler executable")
	root.PersistentFlags().Var(flagStyle, "style", "output style: expanded or compressed")
	root.PersistentFlags().BoolVar(&flagCharset, "charset", true, "emit a @charset/BOM for non-ASCII output")
	root.PersistentFlags().BoolVar(&flagSourceMap, "source-map", false, "generate a source map")
	root.PersistentFlags().BoolVar(&flagQuietDeps, "quiet-deps", false, "silence warnings from dependencies")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "print all deprecation warnings, not just the first of each kind")
	root.PersistentFlags().BoolVar(&flagAlertColor, "alert-color", false, "colorize compiler-formatted errors and warnings (default: auto-detect from stdout)")
	root.PersistentFlags().BoolVar(&flagAlertAscii, "alert-ascii", false, "use only ASCII characters in compiler-formatted output")
	root.PersistentFlags().StringSliceVar(&flagLoadPaths, "load-path", nil, "directory to search for stylesheets, may be repeated")

	cobra.OnInitialize(initConfig)

	root.AddCommand(newCompileCommand())
	root.AddCommand(newVersionCommand())
	root.AddCommand(newConfigCommand())

	return root
}

// configDump is the YAML shape newConfigCommand emits: the effective
// settings a compile would use. Only exe-path is looked up through viper
// (and so can come from a config file or the environment); every other
// setting comes from its command-line flag alone.
type configDump struct {
	ExePath    string   `yaml:"exe-path"`
	Style      string   `yaml:"style"`
	Charset    bool     `yaml:"charset"`
	SourceMap  bool     `yaml:"source-map"`
	QuietDeps  bool     `yaml:"quiet-deps"`
	Verbose    bool     `yaml:"verbose"`
	AlertColor bool     `yaml:"alert-color"`
	AlertAscii bool     `yaml:"alert-ascii"`
	LoadPaths  []string `yaml:"load-path,omitempty"`
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFromFlags(cmd)
			dump := configDump{
				ExePath:    resolveExePath(),
				Style:      opts.Style.String(),
				Charset:    opts.Charset,
				SourceMap:  opts.SourceMap,
				QuietDeps:  opts.QuietDeps,
				Verbose:    opts.Verbose,
				AlertColor: host.ResolveAlertColor(opts.AlertColor),
				AlertAscii: opts.AlertAscii,
				LoadPaths:  opts.LoadPaths,
			}

			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(dump)
		},
	}
}

func initConfig() {
	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else {
		viper.SetConfigName(".sassc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SASSC")
	viper.AutomaticEnv()

	// A missing config file is fine; an unreadable one that exists is
	// surfaced at the point a command actually needs a setting from it.
	_ = viper.ReadInConfig()
}

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [path]",
		Short: "compile a stylesheet file or an inline --string",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := host.NewChannel(resolveExePath())
			if err != nil {
				return err
			}
			defer ch.Close()

			opts := optionsFromFlags(cmd)

			var result host.CompileResult
			if flagStringSource != "" {
				result, err = ch.CompileString(flagStringSource, host.StringOptions{Options: opts})
			} else {
				if len(args) != 1 {
					return fmt.Errorf("sassc compile: exactly one path is required unless --string is given")
				}
				result, err = ch.Compile(args[0], opts)
			}
			if err != nil {
				return err
			}

			fmt.Println(result.CSS)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagStringSource, "string", "", "compile this source text instead of a file")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the compiler's version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := host.NewChannel(resolveExePath())
			if err != nil {
				return err
			}
			defer ch.Close()

			info, err := ch.Info()
			if err != nil {
				return err
			}

			fmt.Printf("%s %s (protocol %s, implementation %s)\n",
				info.ImplementationName, info.CompilerVersion, info.ProtocolVersion, info.ImplementationVersion)
			return nil
		},
	}
}

func resolveExePath() string {
	if viper.IsSet("exe-path") {
		return viper.GetString("exe-path")
	}
	return flagExePath
}

// optionsFromFlags builds an Options from the resolved flags. AlertColor
// is left nil — letting the library auto-detect from its own stdout —
// unless the caller explicitly passed --alert-color, since the flag's
// own zero value ("false") must not be mistaken for an explicit choice.
func optionsFromFlags(cmd *cobra.Command) host.Options {
	opts := host.DefaultOptions()
	opts.LoadPaths = flagLoadPaths
	opts.SourceMap = flagSourceMap
	opts.QuietDeps = flagQuietDeps
	opts.Verbose = flagVerbose
	if cmd.Flags().Changed("alert-color") {
		v := flagAlertColor
		opts.AlertColor = &v
	}
	opts.AlertAscii = flagAlertAscii
	opts.Charset = flagCharset
	opts.Style = flagStyle.value

	return opts
}

var _ pflag.Value = (*styleFlag)(nil)
