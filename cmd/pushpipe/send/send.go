// Package sendcmder provides the send command for publishing an event to a
// broadcast server.
package sendcmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pushpipe/pushpipe/pkg/cliui"
	"github.com/pushpipe/pushpipe/pkg/config"
	"github.com/pushpipe/pushpipe/server"
)

type SendCommander struct {
	host      string
	port      int
	eventType string
}

const sendLongDesc string = `Publish an event to a broadcast server.

The event data is taken from the argument, or read from stdin when no
argument is given:

  pushpipe send "deploy finished"
  echo "deploy finished" | pushpipe send --type deploy`

const sendShortDesc string = "Publish an event to a pushpipe server"

func NewSendCmd() *cobra.Command {
	cmder := &SendCommander{}

	cmd := &cobra.Command{
		Use:   "send [data]",
		Short: sendShortDesc,
		Long:  sendLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("host") {
				cmder.host = cfg.Subscribe.Host
			}
			if !cmd.Flags().Changed("port") {
				cmder.port = cfg.Subscribe.Port
			}

			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := eventData(args)
			if err != nil {
				return err
			}

			return cmder.run(data)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.host, "host", "H", defaults.Subscribe.Host, "Server host to publish to")
	cmd.Flags().IntVarP(&cmder.port, "port", "p", defaults.Subscribe.Port, "Server port")
	cmd.Flags().StringVarP(&cmder.eventType, "type", "t", "", "Event type field")

	return cmd
}

func eventData(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading event data from stdin: %w", err)
	}

	return strings.TrimRight(string(raw), "\n"), nil
}

func (c *SendCommander) run(data string) error {
	body, err := json.Marshal(server.PublishRequest{
		Type: c.eventType,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/publish", c.host, c.port)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("%s publish failed\n", cliui.FailMark)
		return fmt.Errorf("publishing event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading publish response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp server.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			fmt.Printf("%s %s\n", cliui.FailMark, errResp.Error)
			return fmt.Errorf("publishing event: %s", errResp.Error)
		}
		return fmt.Errorf("publishing event: unexpected status %d", resp.StatusCode)
	}

	var result server.PublishResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("decoding publish response: %w", err)
	}

	if cliui.IsTerminal() {
		fmt.Printf("%s published %s\n", cliui.SuccessMark, cliui.StepStyle.Render(result.ID))
	} else {
		fmt.Printf("published %s\n", result.ID)
	}

	return nil
}
