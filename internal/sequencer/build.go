package sequencer

// ServiceSpec is the declarative description of one service, as
// cmd/sequencerd assembles it from a config.ScheduleConfig's services
// list. BuildServices turns a slice of these
// into fully constructed *Service values with correctly sized release
// semaphores.
type ServiceSpec struct {
	ID     int
	Name   string
	Period int
	CPU    int
	Hooks  Hooks
}

// BuildServices constructs one *Service per spec, sizing each service's
// release-credit capacity to ExpectedReleases(period, maxIterations)+1 —
// enough to hold every tick-driven release the run will ever produce,
// plus the one termination credit Terminate posts at the end.
func BuildServices(specs []ServiceSpec, maxIterations uint64) ([]*Service, error) {
	services := make([]*Service, 0, len(specs))
	for _, spec := range specs {
		capacity := int(ExpectedReleases(spec.Period, maxIterations)) + 1
		svc, err := NewService(spec.ID, spec.Name, spec.Period, spec.CPU, spec.Hooks, capacity)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}
