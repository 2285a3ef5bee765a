package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/store"
	"github.com/agrinet/becknmart/pkg/metrics"
)

const (
	backupFilePrefix = "network-"
	backupKeep       = 7
	backupTimeFormat = "20060102150405.000000000"
	publishLogDays   = 90
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1m", a.SchedNetworkGaugeTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if _, ok := a.store.(store.Backuper); ok && a.appConfig.Network.BackupCron != "" {
		_, err = a.sched.AddFunc(a.appConfig.Network.BackupCron, a.SchedBackupTask)
		if err != nil {
			zap.S().Errorf("init backup job error %s", err.Error())
		}
	}

	if a.gormDB != nil {
		_, err = a.sched.AddFunc("@daily", a.SchedClearExpireData)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCPUUse, int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemUse, int64(_meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCPUUse, int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemUse, int64(meminfo.RSS/1024/1024))
	}
}

// SchedNetworkGaugeTask item and subscriber counts of the broadcast
func (a *Application) SchedNetworkGaugeTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	items, err := a.network.ListAll()
	if err != nil {
		zap.L().Warn("network gauge: list failed",
			zap.String("namespace", "broadcast"), zap.Error(err))
		return
	}
	metrics.SetGauge(metrics.NetworkItems, int64(len(items)))
	metrics.SetGauge(metrics.SubscribersActive, int64(a.network.Hub().Len()))
}

// SchedBackupTask scheduled network store snapshot
func (a *Application) SchedBackupTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if _, err := a.RunBackupNow(); err != nil {
		zap.L().Error("network backup failed",
			zap.String("namespace", "backup"), zap.Error(err))
	}
}

// RunBackupNow writes the network store into the backup dir and prunes old
// snapshots. Only stores implementing store.Backuper can be backed up.
func (a *Application) RunBackupNow() (string, error) {
	b, ok := a.store.(store.Backuper)
	if !ok {
		return "", errors.Errorf("store %q does not support backup", a.appConfig.Network.Store)
	}
	dir := a.appConfig.GetBackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "backup: create dir")
	}
	name, f, err := createBackupFile(dir, time.Now())
	if err != nil {
		return "", errors.Wrap(err, "backup: create file")
	}
	n, err := b.Backup(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name)
		return "", errors.Wrap(err, "backup: write")
	}
	zap.L().Info("network backup done",
		zap.String("namespace", "backup"),
		zap.String("file", name),
		zap.String("size", bytes.Format(n)),
	)
	pruneBackups(dir, backupKeep)

	if sc := a.appConfig.Network.BackupSftp; sc.Addr != "" {
		remote, err := uploadBackupSftp(sc, name)
		if err != nil {
			zap.L().Error("network backup upload failed",
				zap.String("namespace", "backup"), zap.String("addr", sc.Addr), zap.Error(err))
		} else {
			zap.L().Info("network backup uploaded",
				zap.String("namespace", "backup"), zap.String("addr", sc.Addr), zap.String("file", remote))
		}
	}
	return name, nil
}

// createBackupFile never reuses an existing name, a taken timestamp moves
// forward by a nanosecond so names keep sorting by time.
func createBackupFile(dir string, at time.Time) (string, *os.File, error) {
	for i := 0; i < 100; i++ {
		name := filepath.Join(dir, fmt.Sprintf("%s%s.db", backupFilePrefix, at.Format(backupTimeFormat)))
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
		at = at.Add(time.Nanosecond)
	}
	return "", nil, errors.New("no free backup file name")
}

func pruneBackups(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupFilePrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-keep] {
		_ = os.Remove(filepath.Join(dir, n))
	}
}

// SchedClearExpireData drops publish log rows past retention
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	a.gormDB.
		Where("published_at < ?", time.Now().
			Add(-time.Hour*24*publishLogDays)).Delete(&domain.PublishLog{})
}
