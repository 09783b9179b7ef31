package compileinfo

import (
	"fmt"
	"runtime/debug"
)

// CompileInfo describes the binary that produced an output file, so that a
// JSON document can be traced back to the commit that built it.
type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary was built with %s at commit %v at time %v.%s", c.Package, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// Short is the compact form embedded in output documents, e.g.
// "github.com/carbocation/dmsatlas/cmd/heatmap@3f2a9c1 (modified)".
func (c CompileInfo) Short() string {
	if c.Package == "" {
		return ""
	}

	out := c.Package
	if c.Commit != "" {
		commit := c.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		out += "@" + commit
	}
	if c.Modified {
		out += " (modified)"
	}

	return out
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
