package rptest

import "rppreproc/internal/rp"

// Calls returns every recorded request in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many requests matched method and path exactly.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Launches returns copies of the started launches.
func (s *Server) Launches() []Launch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Launch, 0, len(s.launches))
	for _, l := range s.launches {
		out = append(out, *l)
	}
	return out
}

// Items returns copies of the started items.
func (s *Server) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	return out
}

// Logs returns the saved log entries and attachments.
func (s *Server) Logs() []Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Log(nil), s.logs...)
}

// Imports returns the launch/import uploads.
func (s *Server) Imports() []Import {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Import(nil), s.imports...)
}

// Dashboards returns copies of the created dashboards.
func (s *Server) Dashboards() []Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Dashboard, 0, len(s.dashboards))
	for _, d := range s.dashboards {
		cp := *d
		cp.Widgets = append([]int(nil), d.Widgets...)
		out = append(out, cp)
	}
	return out
}

// Merges returns the launch/merge request bodies.
func (s *Server) Merges() []rp.MergeLaunchesRQ {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rp.MergeLaunchesRQ(nil), s.merges...)
}

// WidgetBody returns the request body the widget named name was created with.
func (s *Server) WidgetBody(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.widgets {
		if w.Name == name {
			return w.Body
		}
	}
	return nil
}

// FilterBody returns the element the filter named name was created with.
func (s *Server) FilterBody(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.filters {
		if f.Name == name {
			return f.Body
		}
	}
	return nil
}
