// Package system holds host helpers: input discovery, file limits, buffer
// pooling and the resource report printed with -stats.
package system

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ImageExtensions are the sheet formats the decoder accepts.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// InitResourceLimits увеличивает лимит открытых файлов: sqlite в режиме WAL
// держит несколько дескрипторов на базу.
func InitResourceLimits(logger *slog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("get file limit", "error", err)
		return
	}

	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("set file limit", "error", err)
		return
	}
	logger.Debug("raised open file limit", "limit", rLimit.Cur)
}

// IsImage reports whether name has a supported sheet extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindLatestImage возвращает сам path, если это изображение, иначе самое
// свежее изображение в директории.
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		if IsImage(fi.Name()) {
			return path, nil
		}
		path = filepath.Dir(path)
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, f := range files {
		if f.IsDir() || !IsImage(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(path, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no images found in %s", path)
	}
	return latestFile, nil
}

// ResourceStats is a point-in-time view of this process and the host.
type ResourceStats struct {
	CPUs         int
	Goroutines   int
	ProcessRSS   uint64
	HostTotal    uint64
	HostUsedPerc float64
}

// CollectStats снимает показатели процесса и памяти хоста. Поля, которые
// gopsutil не может прочитать на этой платформе, остаются нулевыми.
func CollectStats() ResourceStats {
	st := ResourceStats{
		CPUs:       runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			st.ProcessRSS = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.HostTotal = vm.Total
		st.HostUsedPerc = vm.UsedPercent
	}
	return st
}

// Report renders the stats block in the console style used by the CLI.
func (s ResourceStats) Report(build string, elapsed time.Duration) string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"CPUs: %d | Goroutines: %d\n"+
			"Process RSS: %s\n"+
			"Host Memory: %s (%.1f%% used)\n"+
			"----------------------------\n",
		build, elapsed.Seconds(), s.CPUs, s.Goroutines,
		humanize.Bytes(s.ProcessRSS), humanize.Bytes(s.HostTotal), s.HostUsedPerc,
	)
}
