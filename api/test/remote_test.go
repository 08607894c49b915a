package test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/remote"
	"github.com/gorilla/mux"
)

// mockRemote fakes the REST backend: a fixed course catalog plus a studio
// namespace that records what gets exported to it.
type mockRemote struct {
	courses []remote.Course

	mu      sync.Mutex
	nextID  int
	created []remote.StudioCourse
	lessons []remote.StudioLesson
	files   []remote.StudioFile
}

func newMockRemote() *mockRemote {
	m := &mockRemote{}
	for i := 1; i <= 5; i++ {
		m.courses = append(m.courses, remote.Course{
			ID:    remote.ID(strconv.Itoa(i)),
			Title: fmt.Sprintf("Course %d", i),
		})
	}
	return m
}

func (m *mockRemote) id() remote.ID {
	m.nextID++
	return remote.ID(strconv.Itoa(100 + m.nextID))
}

func (m *mockRemote) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+remoteToken
}

func (m *mockRemote) handle() http.Handler {
	respond := func(w http.ResponseWriter, v any, status int) {
		web.Respond(context.Background(), w, v, status)
	}

	list := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("page_size"))
		if page < 1 || size < 1 {
			respond(w, map[string]string{"detail": "bad paging"}, http.StatusBadRequest)
			return
		}

		var matched []remote.Course
		for _, c := range m.courses {
			if strings.Contains(strings.ToLower(c.Title), strings.ToLower(q.Get("search"))) {
				matched = append(matched, c)
			}
		}

		start, end := (page-1)*size, page*size
		if start >= len(matched) && page > 1 {
			respond(w, map[string]string{"detail": "Invalid page."}, http.StatusNotFound)
			return
		}
		end = min(end, len(matched))

		out := remote.CoursePage{Count: len(matched), Results: matched[start:end]}
		if end < len(matched) {
			next := fmt.Sprintf("/api/courses/?page=%d", page+1)
			out.Next = &next
		}
		if page > 1 {
			prev := fmt.Sprintf("/api/courses/?page=%d", page-1)
			out.Previous = &prev
		}
		respond(w, out, http.StatusOK)
	})

	show := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		for _, c := range m.courses {
			if string(c.ID) == id {
				respond(w, c, http.StatusOK)
				return
			}
		}
		respond(w, map[string]string{"detail": "Not found."}, http.StatusNotFound)
	})

	lessons := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ordering") != "order" {
			respond(w, nil, http.StatusBadRequest)
			return
		}
		course := remote.ID(r.URL.Query().Get("course"))
		respond(w, map[string]any{"results": []remote.Lesson{
			{ID: "1", CourseID: course, Title: "Intro", Order: 1},
			{ID: "2", CourseID: course, Title: "Setup", Order: 2},
		}}, http.StatusOK)
	})

	reviews := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, []remote.Review{{ID: "1", Author: "bob", Rating: 5, Comment: "great"}}, http.StatusOK)
	})

	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, remote.Health{OK: true, Service: "mock"}, http.StatusOK)
	})

	studio := func(h http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.authorized(r) {
				respond(w, map[string]string{"detail": "Authentication credentials were not provided."}, http.StatusUnauthorized)
				return
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			h(w, r)
		})
	}

	createCourse := studio(func(w http.ResponseWriter, r *http.Request) {
		var sc remote.StudioCourse
		if err := web.Decode(w, r, &sc); err != nil {
			respond(w, nil, http.StatusBadRequest)
			return
		}
		sc.ID = m.id()
		m.created = append(m.created, sc)
		respond(w, sc, http.StatusCreated)
	})

	listCourses := studio(func(w http.ResponseWriter, r *http.Request) {
		respond(w, m.created, http.StatusOK)
	})

	updateCourse := studio(func(w http.ResponseWriter, r *http.Request) {
		var sc remote.StudioCourse
		if err := web.Decode(w, r, &sc); err != nil {
			respond(w, nil, http.StatusBadRequest)
			return
		}
		for i := range m.created {
			if string(m.created[i].ID) == mux.Vars(r)["id"] {
				m.created[i].Status = sc.Status
				respond(w, m.created[i], http.StatusOK)
				return
			}
		}
		respond(w, nil, http.StatusNotFound)
	})

	createLesson := studio(func(w http.ResponseWriter, r *http.Request) {
		var sl remote.StudioLesson
		if err := web.Decode(w, r, &sl); err != nil {
			respond(w, nil, http.StatusBadRequest)
			return
		}
		sl.ID = m.id()
		m.lessons = append(m.lessons, sl)
		respond(w, sl, http.StatusCreated)
	})

	upload := studio(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			respond(w, map[string]string{"detail": err.Error()}, http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)

		sf := remote.StudioFile{ID: m.id(), Kind: r.FormValue("kind"), Name: hdr.Filename, URL: string(b)}
		m.files = append(m.files, sf)
		respond(w, sf, http.StatusCreated)
	})

	wallet := studio(func(w http.ResponseWriter, r *http.Request) {
		respond(w, []remote.Transaction{{ID: "1", Kind: "purchase", Amount: "19.00", Currency: "USD"}}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/api/healthz/", health).Methods("GET")
	r.Handle("/api/courses/", list).Methods("GET")
	r.Handle("/api/courses/{id}/", show).Methods("GET")
	r.Handle("/api/courses/{id}/reviews/", reviews).Methods("GET")
	r.Handle("/api/lessons/", lessons).Methods("GET")
	r.Handle("/api/studio/courses/", listCourses).Methods("GET")
	r.Handle("/api/studio/courses/", createCourse).Methods("POST")
	r.Handle("/api/studio/courses/{id}/", updateCourse).Methods("PATCH")
	r.Handle("/api/studio/lessons/", createLesson).Methods("POST")
	r.Handle("/api/studio/lessons/{id}/upload/", upload).Methods("POST")
	r.Handle("/api/wallet/transactions/", wallet).Methods("GET")
	return r
}
