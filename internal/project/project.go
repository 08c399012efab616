// Package project provides project type auto-detection by inspecting
// well-known files and dependency manifests in a source directory.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Result holds the detected project type. Type is a machine-readable
// identifier, Label a human-readable name; Router is "app", "pages", or
// both joined when a Next.js tree mixes conventions. All fields are empty
// when the project type is unknown.
type Result struct {
	Type   string
	Label  string
	Router string
}

// Detect inspects the directory at root and returns the detected project
// type. Detection signals are checked in priority order; the first match
// wins. Unknown projects still scan, just without router conventions.
func Detect(root string) Result {
	for _, name := range []string{"next.config.js", "next.config.mjs", "next.config.ts"} {
		if fileExists(root, name) {
			return Result{Type: "nextjs", Label: "Next.js", Router: nextRouter(root)}
		}
	}

	if dirExists(root, filepath.Join("app", "api")) || dirExists(root, filepath.Join("pages", "api")) {
		// Router directories without a config file still mark a Next.js tree.
		return Result{Type: "nextjs", Label: "Next.js", Router: nextRouter(root)}
	}

	deps := readPackageJSONDeps(root)
	if _, ok := deps["next"]; ok {
		return Result{Type: "nextjs", Label: "Next.js", Router: nextRouter(root)}
	}
	if _, ok := deps["express"]; ok {
		return Result{Type: "express", Label: "Express"}
	}
	if _, ok := deps["fastify"]; ok {
		return Result{Type: "fastify", Label: "Fastify"}
	}
	if fileExists(root, "package.json") {
		return Result{Type: "node", Label: "Node.js"}
	}
	return Result{}
}

func nextRouter(root string) string {
	app := dirExists(root, filepath.Join("app", "api")) || dirExists(root, filepath.Join("src", "app", "api"))
	pages := dirExists(root, filepath.Join("pages", "api")) || dirExists(root, filepath.Join("src", "pages", "api"))
	switch {
	case app && pages:
		return "app+pages"
	case app:
		return "app"
	case pages:
		return "pages"
	default:
		return "app"
	}
}

func fileExists(root, name string) bool {
	info, err := os.Stat(filepath.Join(root, name))
	return err == nil && !info.IsDir()
}

func dirExists(root, name string) bool {
	info, err := os.Stat(filepath.Join(root, name))
	return err == nil && info.IsDir()
}

func readPackageJSONDeps(root string) map[string]string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	deps := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for k, v := range manifest.Dependencies {
		deps[k] = v
	}
	for k, v := range manifest.DevDependencies {
		deps[k] = v
	}
	return deps
}
