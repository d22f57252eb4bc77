package cexec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{
			name:   "success",
			result: Result{ExitCode: 0, Error: nil},
			want:   true,
		},
		{
			name:   "non-zero exit",
			result: Result{ExitCode: 1, Error: nil},
			want:   false,
		},
		{
			name:   "with error",
			result: Result{ExitCode: 0, Error: errors.New("test error")},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.result.Success())
		})
	}
}

func TestResult_Failed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{
			name:   "success",
			result: Result{ExitCode: 0, Error: nil},
			want:   false,
		},
		{
			name:   "failed",
			result: Result{ExitCode: 1, Error: nil},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.result.Failed())
		})
	}
}

func TestTargetOS_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		os   TargetOS
		want string
	}{
		{"linux", OSLinux, "linux"},
		{"windows", OSWindows, "windows"},
		{"darwin", OSDarwin, "darwin"},
		{"unknown", OSUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.os.String())
		})
	}
}

func TestTargetOS_ShellCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		os     TargetOS
		script string
		want   *Command
	}{
		{
			name:   "linux shell",
			os:     OSLinux,
			script: "echo hello",
			want:   &Command{Cmd: "sh", Args: []string{"-c", "echo hello"}},
		},
		{
			name:   "windows shell (powershell)",
			os:     OSWindows,
			script: "echo hello",
			want:   &Command{Cmd: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", "echo hello"}},
		},
		{
			name:   "darwin shell",
			os:     OSDarwin,
			script: "echo hello",
			want:   &Command{Cmd: "sh", Args: []string{"-c", "echo hello"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.os.ShellCommand(tt.script))
		})
	}
}

func TestParseTargetOS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		osStr string
		want  TargetOS
	}{
		{"linux", "linux", OSLinux},
		{"windows", "windows", OSWindows},
		{"windows_nt", "windows_nt", OSWindows},
		{"darwin", "darwin", OSDarwin},
		{"macos", "macos", OSDarwin},
		{"unknown", "freebsd", OSUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseTargetOS(tt.osStr))
		})
	}
}

func TestTargetOS_ExecutableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		os   TargetOS
		in   string
		want string
	}{
		{"linux untouched", OSLinux, "docker", "docker"},
		{"windows gets exe", OSWindows, "docker", "docker.exe"},
		{"windows keeps exe", OSWindows, "podman.EXE", "podman.EXE"},
		{"windows keeps path", OSWindows, `C:\bin\docker`, `C:\bin\docker`},
		{"empty", OSWindows, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.os.ExecutableName(tt.in))
		})
	}
}

func TestTargetOS_DetectLocalOS(t *testing.T) {
	t.Parallel()

	// This will vary by platform, just ensure it doesn't panic
	got := DetectLocalOS()
	assert.GreaterOrEqual(t, int(got), int(OSUnknown))
	assert.LessOrEqual(t, int(got), int(OSDarwin))
}

func TestCommand_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "command only",
			cmd:  Command{Cmd: "ls"},
			want: "ls",
		},
		{
			name: "command with args",
			cmd:  Command{Cmd: "ls", Args: []string{"-la", "/tmp"}},
			want: "ls -la /tmp",
		},
		{
			name: "args with spaces",
			cmd:  Command{Cmd: "echo", Args: []string{"hello world", "foo"}},
			want: "echo 'hello world' foo",
		},
		{
			name: "empty arg and quote",
			cmd:  Command{Cmd: "docker", Args: []string{"run", "-e", "", "it's"}},
			want: `docker run -e '' "it's"`,
		},
		{
			name: "metacharacters",
			cmd:  Command{Cmd: "sh", Args: []string{"-c", "echo $HOME; ls | wc"}},
			want: "sh -c 'echo $HOME; ls | wc'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr error
	}{
		{
			name: "subcommand",
			line: "ps",
			want: []string{"ps"},
		},
		{
			name: "flags and image",
			line: "run --rm -p 8080:80 nginx",
			want: []string{"run", "--rm", "-p", "8080:80", "nginx"},
		},
		{
			name: "quoted values",
			line: `run --name "my app" -e 'GREETING=hello world' alpine`,
			want: []string{"run", "--name", "my app", "-e", "GREETING=hello world", "alpine"},
		},
		{
			name: "extra spaces",
			line: "  network   ls  ",
			want: []string{"network", "ls"},
		},
		{
			name:    "empty",
			line:    "   ",
			wantErr: ErrEmptyArgs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseArgs(tt.line)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCommand(t *testing.T) {
	t.Parallel()

	cmd := NewCommand("ls", "-la", "/tmp")
	assert.Equal(t, "ls", cmd.Cmd)
	assert.Equal(t, []string{"-la", "/tmp"}, cmd.Args)
}

func TestCommand_Validate(t *testing.T) {
	t.Parallel()

	var nilCmd *Command

	require.Error(t, nilCmd.Validate())
	require.Error(t, (&Command{Cmd: "  "}).Validate())
	require.NoError(t, NewCommand("docker").Validate())
	assert.Empty(t, nilCmd.String())
}

func TestOutcome_Success(t *testing.T) {
	t.Parallel()

	var nilOutcome *Outcome

	assert.False(t, nilOutcome.Success())
	assert.True(t, (&Outcome{}).Success())
	assert.False(t, (&Outcome{ExitCode: 125}).Success())
}

func TestExitError_Error(t *testing.T) {
	t.Parallel()

	t.Run("with command", func(t *testing.T) {
		t.Parallel()

		e := &ExitError{
			Command:  &Command{Cmd: "ls", Args: []string{"-la"}},
			ExitCode: 1,
		}
		assert.Equal(t, `command "ls -la" exited with code 1`, e.Error())
		assert.ErrorIs(t, e, ErrNonZeroExit)
	})

	t.Run("without command", func(t *testing.T) {
		t.Parallel()

		e := &ExitError{
			ExitCode: 1,
		}

		assert.NotPanics(t, func() {
			assert.Equal(t, "command exited with code 1", e.Error())
		})
	})
}
