package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary to pair with ffmpeg.
//
// An explicitly configured ffprobe always wins. Otherwise, when ffmpeg is
// configured as a path (a static build unpacked somewhere), the ffprobe that
// ships beside it is preferred so both tools come from the same build. The
// plain "ffprobe" name is the final fallback.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	if probe := strings.TrimSpace(ffprobeCommand); probe != "" && probe != "ffprobe" {
		return probe
	}
	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" && strings.ContainsRune(ffmpegBinary, filepath.Separator) {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			candidate := sidecarPath(resolved, "ffprobe")
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

func sidecarPath(binaryPath, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
