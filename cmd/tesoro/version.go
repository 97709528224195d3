package tesoro

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tesoro-project/tesoro/pkg/publicapi"
	"github.com/tesoro-project/tesoro/pkg/version"
)

// Versions carries the client build info plus, when a server answers,
// the server's.
type Versions struct {
	ClientVersion *version.BuildVersionInfo `json:"clientVersion,omitempty"`
	ServerVersion *version.BuildVersionInfo `json:"serverVersion,omitempty"`
}

// VersionOptions is a struct to support version command
type VersionOptions struct {
	ClientOnly bool
	Output     string
	ServerURI  string
}

// NewVersionOptions returns initialized Options
func NewVersionOptions() *VersionOptions {
	return &VersionOptions{
		ServerURI: "http://127.0.0.1:8080",
	}
}

func newVersionCmd() *cobra.Command {
	oV := NewVersionOptions()

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Get the client and server version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, oV)
		},
	}
	versionCmd.Flags().BoolVar(&oV.ClientOnly, "client", oV.ClientOnly,
		"If true, shows client version only (no server required).")
	versionCmd.Flags().StringVar(&oV.ServerURI, "api", oV.ServerURI,
		"The URI of the tesoro API server to query.")
	versionCmd.Flags().StringVarP(&oV.Output, "output", "o", oV.Output,
		"One of 'yaml' or 'json'.")

	return versionCmd
}

func runVersion(cmd *cobra.Command, oV *VersionOptions) error {
	err := oV.Validate(cmd)
	if err != nil {
		return err
	}
	return oV.Run(cmd.Context(), cmd)
}

// Validate validates the provided options
func (oV *VersionOptions) Validate(*cobra.Command) error {
	if oV.Output != "" && oV.Output != "yaml" && oV.Output != "json" {
		return fmt.Errorf("invalid output format: %s, allowed formats are: yaml, json", oV.Output)
	}
	return nil
}

// Run executes version command
func (oV *VersionOptions) Run(ctx context.Context, cmd *cobra.Command) error {
	versions := Versions{ClientVersion: version.Get()}

	if !oV.ClientOnly {
		serverVersion, err := publicapi.NewAPIClient(oV.ServerURI).Version(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not get server version")
		} else {
			versions.ServerVersion = serverVersion
		}
	}

	switch oV.Output {
	case "":
		cmd.Printf("Client Version: %s\n", versions.ClientVersion.GitVersion)
		if versions.ServerVersion != nil {
			cmd.Printf("Server Version: %s\n", versions.ServerVersion.GitVersion)
		}
	case "json":
		marshalled, err := json.Marshal(versions)
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", string(marshalled))
	case "yaml":
		marshalled, err := yaml.Marshal(versions)
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", string(marshalled))
	}

	return nil
}
