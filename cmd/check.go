package cmd

import (
	"github.com/sigmarules/engine"

	plog "github.com/prometheus/common/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse a ruleset for testing",
	Long:  `Recursively parses a sigma ruleset from filesystem and provides detailed feedback to the user about rule support.`,
	Run:   check,
}

func check(cmd *cobra.Command, args []string) {
	files, err := sigma.NewRuleFileList(viper.GetStringSlice("rules.dir"))
	if err != nil {
		plog.Fatal(err)
	}
	for _, f := range files {
		logrus.Trace(f)
	}
	logrus.Infof("Found %d rule files", len(files))

	rs, err := sigma.NewRuleset(sigma.Config{Directory: viper.GetStringSlice("rules.dir")})
	if err != nil {
		logrus.Fatal(err)
	}
	for _, handle := range rs.Rules {
		logrus.Infof("%s: ok (%s)", handle.Path, handle.Rule.Title())
	}
	logrus.Infof("OK: %d; UNSUPPORTED: %d; BROKEN: %d; TOTAL: %d", rs.OK, rs.Unsupported, rs.Broken, rs.Total)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
