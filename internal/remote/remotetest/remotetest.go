// Package remotetest serves an in-memory posts collection over HTTP for
// tests. Routes mirror the placeholder API; every request is recorded so
// tests can assert how many network calls an operation made.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/smileynet/postdeck/internal/post"
)

// Route templates accepted by Fail, Hold and Hits.
const (
	Collection = "/posts"
	Item       = "/posts/{id}"
)

// Call is one recorded request.
type Call struct {
	Method string
	Route  string
	Status int
}

// Server is a fake posts collection.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	posts    []post.Post
	nextID   post.ID
	fixedID  post.ID
	failures map[string]int
	holds    map[string]*hold
	calls    []Call
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
}

// New starts a Server seeded with posts and registers its shutdown with t.
func New(t testing.TB, seed ...post.Post) *Server {
	t.Helper()
	s := &Server{
		posts:    append([]post.Post(nil), seed...),
		failures: make(map[string]int),
		holds:    make(map[string]*hold),
	}
	for _, p := range seed {
		if p.ID >= s.nextID {
			s.nextID = p.ID
		}
	}
	s.nextID++

	r := mux.NewRouter()
	r.HandleFunc(Collection, s.list).Methods(http.MethodGet)
	r.HandleFunc(Collection, s.create).Methods(http.MethodPost)
	r.HandleFunc(Item, s.get).Methods(http.MethodGet)
	r.HandleFunc(Item, s.remove).Methods(http.MethodDelete)
	r.Use(s.record, s.intercept)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// FixedID makes every create answer with id, the way the placeholder API
// always answers 101.
func (s *Server) FixedID(id post.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixedID = id
}

// Fail makes requests on method+route answer with status until Heal.
func (s *Server) Fail(method, route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+route] = status
}

// Heal undoes Fail.
func (s *Server) Heal(method, route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+route)
}

// Hold parks requests on method+route until release is called. arrived
// receives once per parked request.
func (s *Server) Hold(method, route string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}, 16), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[method+" "+route] = h
	s.mu.Unlock()

	var once sync.Once
	return h.arrived, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, method+" "+route)
			s.mu.Unlock()
			close(h.release)
		})
	}
}

// Hits counts completed requests on method+route.
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && c.Route == route {
			n++
		}
	}
	return n
}

// Calls returns every completed request in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Posts returns the server-side collection.
func (s *Server) Posts() []post.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]post.Post(nil), s.posts...)
}

// record captures method, route template and status of every request.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Route: route, Status: m.Code})
		s.mu.Unlock()
	})
}

// intercept applies Hold and Fail before the route handler runs.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, _ := mux.CurrentRoute(r).GetPathTemplate()
		key := r.Method + " " + route

		s.mu.Lock()
		h := s.holds[key]
		s.mu.Unlock()
		if h != nil {
			h.arrived <- struct{}{}
			select {
			case <-h.release:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		status, failing := s.failures[key]
		s.mu.Unlock()
		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Posts())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, struct{}{})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var d post.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	id := s.fixedID
	if id == 0 {
		id = s.nextID
		s.nextID++
	}
	p := post.Post{ID: id, Title: d.Title, Body: d.Body, OwnerID: d.OwnerID}
	s.posts = append(s.posts, p)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

// remove answers 200 for unknown ids, like the placeholder API.
func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	kept := s.posts[:0]
	for _, p := range s.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, struct{}{})
}

func pathID(w http.ResponseWriter, r *http.Request) (post.ID, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return post.ID(n), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
