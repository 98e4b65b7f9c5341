package app

// SetBeforeBeginHook runs fn after the first cache lookup and before the
// in-progress guard is taken.
func (s *AnalysisService) SetBeforeBeginHook(fn func(name string)) { s.beforeBegin = fn }
