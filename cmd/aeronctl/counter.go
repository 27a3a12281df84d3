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

func newCounterCmd() *cobra.Command {
	var typeID int32
	var key string
	var label string

	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Add a counter and hold it open until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer a.Close()

			counter, err := a.AddCounter(typeID, []byte(key), label)
			if err != nil {
				return fmt.Errorf("add counter: %w", err)
			}
			defer counter.Close()
			fmt.Printf("counter registered: registrationId=%d counterId=%d\n",
				counter.RegistrationID(), counter.ID())

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			runForOrUntilInterrupted(signals)
			return nil
		},
	}

	cmd.Flags().Int32Var(&typeID, "type-id", 0, "counter type id")
	cmd.Flags().StringVar(&key, "key", "", "counter key bytes, interpreted as a raw string")
	cmd.Flags().StringVar(&label, "label", "aeronctl counter", "counter label")
	return cmd
}
