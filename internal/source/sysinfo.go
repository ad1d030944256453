package source

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/vitalis/secagent/internal/collector"
	"github.com/Guliveer/vitalis/secagent/internal/collectorsinfo"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

type systemInformation struct {
	base
	info  *collectorsinfo.Info
	extra *models.ExtraDetails

	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	osRelease     string
}

// SystemInformation reports OS, host and memory facts. When info is set, the
// announced collector intervals are appended to ExtraDetails.
func SystemInformation(priority collector.Priority, info *collectorsinfo.Info, extraEntries int) collector.Init {
	return func(env collector.Env) (collector.Source, error) {
		b, err := newBase(collector.TypeSystemInformation, priority, env)
		if err != nil {
			return nil, err
		}
		return &systemInformation{
			base:          b,
			info:          info,
			extra:         models.NewExtraDetails(extraEntries),
			hostInfo:      host.InfoWithContext,
			virtualMemory: mem.VirtualMemoryWithContext,
			osRelease:     osReleasePath,
		}, nil
	}
}

func (s *systemInformation) Collect(ctx context.Context, sink collector.Sink) error {
	hi, err := s.hostInfo(ctx)
	if err != nil {
		return fmt.Errorf("host info: %w", err)
	}
	vm, err := s.virtualMemory(ctx)
	if err != nil {
		return fmt.Errorf("virtual memory: %w", err)
	}

	name := osReleaseName(s.osRelease)
	if name == "" {
		name = hi.Platform
	}
	if name == "" {
		name = hi.OS
	}

	s.extra.Reset()
	if hi.KernelVersion != "" {
		s.extra.Add("KernelVersion", hi.KernelVersion)
	}
	if hi.PlatformFamily != "" {
		s.extra.Add("PlatformFamily", hi.PlatformFamily)
	}
	if s.info != nil {
		s.info.AppendTo(s.extra)
	}

	payload := models.SystemInformationPayload{
		OSName:                  name,
		OSVersion:               hi.PlatformVersion,
		OsArchitecture:          hi.KernelArch,
		HostName:                hi.Hostname,
		TotalPhysicalMemoryInKB: vm.Total / 1024,
		FreePhysicalMemoryInKB:  vm.Free / 1024,
	}
	if s.extra.Len() > 0 {
		payload.ExtraDetails = s.extra
	}

	e, err := s.newEvent(models.CategoryPeriodic)
	if err != nil {
		return err
	}
	if err := e.AppendPayload(payload); err != nil {
		e.Release()
		return err
	}
	return sink.Push(e)
}
