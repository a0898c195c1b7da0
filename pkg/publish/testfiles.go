package publish

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"sigs.k8s.io/yaml"

	yamlv3 "gopkg.in/yaml.v3"
)

// TestsFileName indexes the job files of one test folder.
const TestsFileName = "tests.yml"

// FindTestJobs collects the job file paths referenced by every test folder
// under dir.
func FindTestJobs(ctx context.Context, dir string) ([]string, error) {
	log := logr.FromContextOrDiscard(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	jobs := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		log.Info("processing test folder", "folder", entry.Name())
		content, err := os.ReadFile(filepath.Join(dir, entry.Name(), TestsFileName))
		if err != nil {
			return nil, err
		}
		groups := map[string]struct {
			Jobs map[string]struct {
				Job string `json:"job"`
			} `json:"jobs"`
		}{}
		if err := yaml.Unmarshal(content, &groups); err != nil {
			return nil, err
		}
		for _, group := range groups {
			for _, job := range group.Jobs {
				if job.Job != "" {
					jobs = append(jobs, filepath.Join(dir, entry.Name(), job.Job))
				}
			}
		}
	}
	return jobs, nil
}

// RewriteTestJobs replaces component references in test job files with the
// asset IDs they were published under, preserving file formatting.
func RewriteTestJobs(ctx context.Context, jobFiles []string, assetIDs map[string]string) error {
	log := logr.FromContextOrDiscard(ctx)

	for _, jobFile := range jobFiles {
		log.Info("processing test job", "file", jobFile)
		doc, root, err := loadSpec(jobFile)
		if err != nil {
			return err
		}
		jobs := mapValue(root, "jobs")
		if jobs == nil || jobs.Kind != yamlv3.MappingNode {
			continue
		}
		changed := false
		for i := 0; i+1 < len(jobs.Content); i += 2 {
			jobName, job := jobs.Content[i].Value, jobs.Content[i+1]
			component := mapValue(job, "component")
			if component == nil {
				continue
			}
			if id, ok := assetIDs[component.Value]; ok {
				log.Info("updating test job component", "job", jobName, "component", id)
				setScalar(component, id)
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := saveSpec(jobFile, doc); err != nil {
			return err
		}
	}
	return nil
}
