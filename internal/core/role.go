package core

import (
	"fmt"
	"strconv"

	"github.com/giantswarm/cacheserver/internal/process"
)

// Role is the part a process plays. It is derived once at startup.
type Role int

const (
	// RoleMaster decides the topology and, without workers, serves and
	// runs the console.
	RoleMaster Role = iota
	// RoleWorker only serves.
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleWorker:
		return "worker"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// DetectRole derives the role from the worker id environment variable. A
// worker also gets its id; the master gets 0.
func DetectRole(getenv func(string) string) (Role, int, error) {
	v := getenv(process.WorkerIDEnv)
	if v == "" {
		return RoleMaster, 0, nil
	}
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("%s must be a positive integer, got %q", process.WorkerIDEnv, v)
	}
	return RoleWorker, id, nil
}
