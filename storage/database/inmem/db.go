// Package inmemdb implements the ledger repositories on a single in-memory
// state struct. One RWMutex guards every table, index and ID counter, so each
// mutation is a single all-or-nothing transition and readers always observe
// the state as of the last completed mutation.
package inmemdb

import (
	"sync"

	"github.com/dusabe/tathmini/core/announcement"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

// evalKey indexes the latest evaluation per (course, student); it backs the
// O(1) HasEvaluated guard.
type evalKey struct {
	courseID int
	student  string
}

type DB struct {
	mu sync.RWMutex

	identities    map[string]*identity.Identity
	identityOrder []string // registration order

	// course IDs are the slice indexes: dense, monotonic from 0, never reused.
	courses []*course.Course

	members        map[int]map[string]bool
	courseStudents map[int][]string // first-join order
	studentCourses map[string][]int // first-join order

	// evaluation IDs are the slice indexes: dense, global, monotonic from 0.
	evals        []*evaluation.Evaluation
	courseEvals  map[int][]int    // append order
	studentEvals map[string][]int // append order
	lastEval     map[evalKey]int

	announcements []announcement.Announcement
}

func New() *DB {
	return &DB{
		identities:     make(map[string]*identity.Identity),
		members:        make(map[int]map[string]bool),
		courseStudents: make(map[int][]string),
		studentCourses: make(map[string][]int),
		courseEvals:    make(map[int][]int),
		studentEvals:   make(map[string][]int),
		lastEval:       make(map[evalKey]int),
	}
}

// Reset drops all state; test helper.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.identities = make(map[string]*identity.Identity)
	db.identityOrder = nil
	db.courses = nil
	db.members = make(map[int]map[string]bool)
	db.courseStudents = make(map[int][]string)
	db.studentCourses = make(map[string][]int)
	db.evals = nil
	db.courseEvals = make(map[int][]int)
	db.studentEvals = make(map[string][]int)
	db.lastEval = make(map[evalKey]int)
	db.announcements = nil
}

// registeredRole reports whether addr is registered with the given role.
// Callers must hold db.mu.
func (db *DB) registeredRole(addr string, role identity.Role) bool {
	idt, ok := db.identities[addr]
	return ok && idt.Registered && idt.Role == role
}
