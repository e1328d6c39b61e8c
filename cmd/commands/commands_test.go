/*
Copyright 2022 The Numaproj Authors.

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

package commands

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/edgeflow"
)

func Test_Commands(t *testing.T) {
	t.Run("root execute", func(t *testing.T) {
		rootCmd.SetArgs([]string{"help"})
		assert.NotPanics(t, Execute)
	})

	t.Run("test root", func(t *testing.T) {
		b := bytes.NewBufferString("")
		rootCmd.SetOut(b)
		rootCmd.SetArgs([]string{"help"})
		Execute()
		output, _ := io.ReadAll(b)
		assert.Contains(t, string(output), "Available Commands")
		assert.Contains(t, string(output), "sensors")
		assert.Contains(t, string(output), "version")
	})

	t.Run("Version", func(t *testing.T) {
		cmd := NewVersionCommand()
		assert.Equal(t, "version", cmd.Use)
		assert.Equal(t, "bool", cmd.Flag("short").Value.Type())

		b := bytes.NewBufferString("")
		cmd.SetOut(b)
		cmd.SetArgs([]string{"--short"})
		require.NoError(t, cmd.Execute())
		assert.Equal(t, edgeflow.GetVersion().Version, strings.TrimSpace(b.String()))

		b.Reset()
		cmd.SetArgs([]string{"--short=false", "-o", "json"})
		require.NoError(t, cmd.Execute())
		var v edgeflow.Version
		require.NoError(t, json.Unmarshal(b.Bytes(), &v))
		assert.Equal(t, edgeflow.GetVersion(), v)

		cmd.SetArgs([]string{"-o", "yaml"})
		assert.ErrorContains(t, cmd.Execute(), "unsupported output format")
	})

	t.Run("Sensors", func(t *testing.T) {
		cmd := NewSensorsCommand()
		assert.Equal(t, "sensors", cmd.Use)
		assert.True(t, cmd.HasLocalFlags())
		assert.Equal(t, "string", cmd.Flag("config").Value.Type())
		assert.Equal(t, "string", cmd.Flag("metrics-addr").Value.Type())
		assert.Equal(t, "int64", cmd.Flag("seed").Value.Type())
		assert.Equal(t, "duration", cmd.Flag("duration").Value.Type())
	})

	t.Run("Sensors run", func(t *testing.T) {
		cmd := NewSensorsCommand()
		b := &bytes.Buffer{}
		cmd.SetOut(b)
		cmd.SetArgs([]string{"--duration=500ms", "--metrics-addr=127.0.0.1:0", "--seed=7"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, b.String(), `"kind":"mean"`)
	})

	t.Run("Sensors bad config", func(t *testing.T) {
		cmd := NewSensorsCommand()
		cmd.SetArgs([]string{"--config=/nonexistent/edgeflow.yaml"})
		assert.Error(t, cmd.Execute())
	})
}
