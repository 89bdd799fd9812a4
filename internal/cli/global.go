package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/apc-foundation/exam-pipeline/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GlobalOptions struct {
	ConfigFilePath string
	ServerUrl      string
	Output         string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client configuration file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server, overrides the configuration file")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if len(o.Output) > 0 && !funk.ContainsString(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// Client builds an API client from the configuration file. A missing file falls back
// to the defaults, so --server-url and CRON_SECRET are enough to reach a server.
func (o *GlobalOptions) Client() (*client.Client, error) {
	cfg, err := client.ParseConfigFile(o.ConfigFilePath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		cfg = client.NewDefault()
	default:
		return nil, err
	}

	if o.ServerUrl != "" {
		cfg.Service.Server = o.ServerUrl
	}

	c, err := client.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

// errRunNotSuccessful makes a printed failed run exit non zero.
var errRunNotSuccessful = errors.New("run did not succeed")

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
