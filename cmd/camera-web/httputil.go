package main

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func writeImage(w http.ResponseWriter, mimeType string, data []byte, cache string) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", cache)
	w.Write(data)
}
