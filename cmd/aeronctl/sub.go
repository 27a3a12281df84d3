/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aeron-io/aeron-go/aeron"
)

func newSubCmd() *cobra.Command {
	var channel string
	var streamID int32

	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Add a subscription and print image availability events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer a.Close()

			available := func(img *aeron.Image) {
				fmt.Printf("image available: correlationId=%d sessionId=%d source=%s\n",
					img.CorrelationID(), img.SessionID(), img.SourceIdentity())
			}
			unavailable := func(img *aeron.Image) {
				fmt.Printf("image unavailable: correlationId=%d sessionId=%d\n",
					img.CorrelationID(), img.SessionID())
			}

			sub, err := a.AddSubscription(channel, streamID, available, unavailable)
			if err != nil {
				return fmt.Errorf("add subscription: %w", err)
			}
			defer sub.Close()
			fmt.Printf("subscription registered: registrationId=%d channelStatusId=%d\n",
				sub.RegistrationID(), sub.ChannelStatusID())

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			runForOrUntilInterrupted(signals)
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "aeron:ipc", "channel URI")
	cmd.Flags().Int32Var(&streamID, "stream-id", 10, "stream id")
	return cmd
}
