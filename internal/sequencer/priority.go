package sequencer

import "sort"

// AssignPriorities sorts services ascending by period (stable, so equal
// periods keep their original relative order — "the one appearing
// earlier wins the higher priority") and assigns priorityDescending =
// index+1, the rate-monotonic policy spec.md §4.3 mandates: shorter
// period implies higher priority.
//
// The slice is sorted in place and also returned for convenience.
func AssignPriorities(services []*Service) []*Service {
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Period < services[j].Period
	})
	for i, s := range services {
		s.priorityDescending = i + 1
	}
	return services
}
