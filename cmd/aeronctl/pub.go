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
)

func newPubCmd() *cobra.Command {
	var channel string
	var streamID int32
	var exclusive bool

	cmd := &cobra.Command{
		Use:   "pub",
		Short: "Add a publication and hold it open until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer a.Close()

			if exclusive {
				pub, err := a.AddExclusivePublication(channel, streamID)
				if err != nil {
					return fmt.Errorf("add exclusive publication: %w", err)
				}
				fmt.Printf("exclusive publication registered: registrationId=%d sessionId=%d\n",
					pub.RegistrationID(), pub.SessionID())
				defer pub.Close()
			} else {
				pub, err := a.AddPublication(channel, streamID)
				if err != nil {
					return fmt.Errorf("add publication: %w", err)
				}
				fmt.Printf("publication registered: registrationId=%d sessionId=%d channelStatusId=%d\n",
					pub.RegistrationID(), pub.SessionID(), pub.ChannelStatusID())
				defer pub.Close()
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			runForOrUntilInterrupted(signals)
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "aeron:udp?endpoint=localhost:40123", "channel URI")
	cmd.Flags().Int32Var(&streamID, "stream-id", 10, "stream id")
	cmd.Flags().BoolVar(&exclusive, "exclusive", false, "register an exclusive (single-writer) publication")
	return cmd
}
