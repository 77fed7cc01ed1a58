package scheduler

// randIntn draws from the shared per-scheduler generator. Victim choice is
// only a hint, so one serialized generator is enough.
func (s *Scheduler) randIntn(n int) int {
	s.rngMu.Lock()
	v := s.rng.Intn(n)
	s.rngMu.Unlock()
	return v
}

// randomVictim picks an unvisited worker for the request. Up to three
// uniform draws are attempted before falling back to enumerating the
// unvisited workers. Returns -1 when every worker has been visited.
func (s *Scheduler) randomVictim(req *stealRequest) int {
	for attempts := 0; attempts < 3; attempts++ {
		v := s.randIntn(s.workerCount)
		if v != req.from && !req.victims.Test(v) {
			return v
		}
	}

	// the originator's bit is always set, so this also excludes it
	numVictims := s.workerCount - req.victims.Count()
	if numVictims <= 0 {
		return -1
	}

	selected := s.randIntn(numVictims)
	for i := 0; i < s.workerCount; i++ {
		if req.victims.Test(i) {
			continue
		}
		if selected == 0 {
			return i
		}
		selected--
	}
	return -1
}

// nextVictim returns the worker the request should visit next. When the
// tour is complete (attempt == W-1) or no candidate remains, the request is
// sent home to its originator. The last successful victim is preferred for
// locality when the feature is enabled.
func (s *Scheduler) nextVictim(d *workerData, req *stealRequest) int {
	if req.attempt == s.workerCount-1 {
		return req.from
	}

	if s.enableLastVictim {
		if lv := int(d.lastVictim.Load()); lv >= 0 && lv != req.from && !req.victims.Test(lv) {
			return lv
		}
	}

	if v := s.randomVictim(req); v >= 0 {
		return v
	}
	return req.from
}
