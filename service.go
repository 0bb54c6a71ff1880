package stride

import (
	"github.com/viant/afs"

	"github.com/strideos/stride/kernel/readyset"
	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/service/event"
	"github.com/strideos/stride/service/executor"
	"github.com/strideos/stride/service/loader"
	"github.com/strideos/stride/service/proctable"
	"github.com/strideos/stride/service/scheduler"
	"github.com/strideos/stride/service/syscall"
)

// Service assembles the scheduling machine: process table, ready set, program
// loader, syscall surface, slice executor and the stride scheduler loop.
type Service struct {
	runtime         *Runtime
	config          *Config
	fs              afs.Service
	imageBaseURL    string
	eventService    *event.Service
	executorOptions []executor.Option
	seedImages      []*program.Program
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	r := s.runtime
	r.config = s.config
	r.table = proctable.New(s.config.ProcTable)
	r.ready = readyset.New()
	var syscallOptions []syscall.Option
	var schedulerOptions []scheduler.Option
	if s.eventService != nil {
		syscallOptions = append(syscallOptions, syscall.WithEventService(s.eventService))
		schedulerOptions = append(schedulerOptions, scheduler.WithEventService(s.eventService))
	}
	r.syscalls = syscall.New(r.table, r.ready, r.images, s.config.DefaultPriority, syscallOptions...)

	exec := executor.NewService(r.syscalls, s.executorOptions...)
	r.scheduler = scheduler.New(r.table, r.ready, exec, s.config.Scheduler, schedulerOptions...)

	for _, img := range s.seedImages {
		if err := r.images.Register(img); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.runtime.images == nil {
		s.runtime.images = loader.New(s.fs, s.imageBaseURL)
	}
}

// Runtime returns the assembled runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates an engine service with the supplied options.
func New(options ...Option) (*Service, error) {
	ret := &Service{runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
