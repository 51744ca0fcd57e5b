package render

import "path/filepath"

// SessionEntry is one row of a project index page.
type SessionEntry struct {
	Name    string // session directory name
	Summary string
	Date    string
	SizeKB  float64
}

// ProjectIndex lists the sessions of one project.
type ProjectIndex struct {
	Name     string
	Sessions []SessionEntry
}

// ProjectEntry is one row of the archive's master index.
type ProjectEntry struct {
	Name         string
	Slug         string
	SessionCount int
	RecentDate   string
}

// MasterIndex lists every project of an archive.
type MasterIndex struct {
	Projects      []ProjectEntry
	TotalSessions int
}

// WriteProjectIndex writes dir/index.html for a project.
func (r *Renderer) WriteProjectIndex(dir string, p ProjectIndex) error {
	data := struct {
		layout
		ProjectIndex
	}{r.layout(p.Name + " - Codex archive"), p}
	return r.write(filepath.Join(dir, IndexFile), "project_index.html", data)
}

// WriteMasterIndex writes dir/index.html for the whole archive.
func (r *Renderer) WriteMasterIndex(dir string, m MasterIndex) error {
	data := struct {
		layout
		MasterIndex
	}{r.layout("Codex archive"), m}
	return r.write(filepath.Join(dir, IndexFile), "master_index.html", data)
}
