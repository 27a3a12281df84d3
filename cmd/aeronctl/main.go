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

// Command aeronctl is a small operator tool that exercises a client
// conductor end to end against a running media driver's CnC directory:
// add a publication, subscription, or counter, watch the driver-originated
// events that follow, and release it on exit.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aeron-io/aeron-go/aeron"
)

var v = viper.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aeronctl",
		Short:         "Exercise an Aeron client conductor against a running media driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("aeron-dir", "", "media driver shared-memory directory (default: OS temp dir)/aeron")
	flags.Duration("driver-timeout", 10*time.Second, "deadline for a single request and for observing driver liveness")
	flags.Duration("run-for", 0, "exit automatically after this long (0 runs until interrupted)")

	v.SetEnvPrefix("aeronctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	root.AddCommand(newPubCmd(), newSubCmd(), newCounterCmd())
	return root
}

// connect builds an aeron.Context from the bound flags and environment and
// connects to the media driver.
func connect() (*aeron.Aeron, error) {
	ctx := aeron.NewContext().
		DriverTimeout(v.GetDuration("driver-timeout"))

	if dir := v.GetString("aeron-dir"); dir != "" {
		ctx.AeronDir(dir)
	}

	return aeron.Connect(ctx)
}

func runForOrUntilInterrupted(signals <-chan os.Signal) {
	if d := v.GetDuration("run-for"); d > 0 {
		select {
		case <-time.After(d):
		case <-signals:
		}
		return
	}
	<-signals
}
