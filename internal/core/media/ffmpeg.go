package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
)

// FFmpeg runs one ffmpeg invocation. mounts lists the directories the
// arguments refer to; sandboxed implementations must expose them.
type FFmpeg interface {
	Name() string
	Run(ctx context.Context, args []string, mounts ...string) error
}

// FFmpegAvailable checks if ffmpeg is installed and available in PATH
func FFmpegAvailable(bin string) bool {
	if bin == "" {
		bin = "ffmpeg"
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

// NewFFmpeg returns the system ffmpeg when bin is on PATH and falls back to
// the embedded WASM build otherwise.
func NewFFmpeg(bin string) FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if FFmpegAvailable(bin) {
		return &ExecFFmpeg{Bin: bin}
	}
	log.Printf("[ffmpeg] %s not found in PATH, using embedded ffmpeg", bin)
	return &WASMFFmpeg{}
}

// ExecFFmpeg runs a system ffmpeg binary.
type ExecFFmpeg struct {
	Bin string
}

func (f *ExecFFmpeg) Name() string { return "ffmpeg" }

func (f *ExecFFmpeg) Run(ctx context.Context, args []string, mounts ...string) error {
	cmd := exec.CommandContext(ctx, f.Bin, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[ffmpeg] command: ffmpeg %s", strings.Join(args, " "))
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WASMFFmpeg runs ffmpeg compiled to WebAssembly inside wazero. Only the
// mounted directories are visible to it.
type WASMFFmpeg struct{}

func (f *WASMFFmpeg) Name() string { return "ffmpeg-wasm" }

func (f *WASMFFmpeg) Run(ctx context.Context, args []string, mounts ...string) error {
	rc, err := ffmpreg.Ffmpeg(ctx, wasm.Args{
		Stderr: io.Discard,
		Stdout: io.Discard,
		Args:   args,
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			fs := wazero.NewFSConfig()
			for _, dir := range mounts {
				fs = fs.WithDirMount(dir, dir)
			}
			return cfg.WithFSConfig(fs)
		},
	})
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if rc != 0 {
		return fmt.Errorf("ffmpeg exited with code %d", rc)
	}
	return nil
}
