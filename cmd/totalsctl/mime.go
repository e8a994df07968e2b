package main

import (
	"net/http"
	"path/filepath"
	"strings"
)

func detectMimeType(path string, raw []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".text":
		return "text/plain"
	}
	detected := http.DetectContentType(raw)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}
