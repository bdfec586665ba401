/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cpreproc expands C source files: includes, macros and
// conditional blocks are resolved into one text with line markers.
package cpreproc

import (
	"fmt"
	"os"
	"sync"

	"github.com/fwessels/cpreproc/internal/preprocessor"
)

type (
	Options   = preprocessor.Options
	Logger    = preprocessor.Logger
	Error     = preprocessor.Error
	FileCache = preprocessor.FileCache
)

func NewFileCache() *FileCache { return preprocessor.NewFileCache() }

// Preprocess expands the file at path and everything it includes.
func Preprocess(path string, opts Options) ([]byte, error) {
	return preprocessor.Preprocess(path, opts)
}

// Job names an input file and the file its expansion is written to.
type Job struct {
	Input  string
	Output string
}

type Result struct {
	Job Job
	Err error
}

// PreprocessFiles runs every job in its own session. All sessions share
// one file cache, opts.Cache or a fresh one. With parallel set the jobs run
// concurrently. Results are in job order; a failing job does not stop the
// others.
func PreprocessFiles(jobs []Job, opts Options, parallel bool) []Result {
	if opts.Cache == nil {
		opts.Cache = NewFileCache()
	}
	results := make([]Result, len(jobs))
	if !parallel {
		for i, job := range jobs {
			results[i] = Result{Job: job, Err: runJob(job, opts)}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			results[i] = Result{Job: job, Err: runJob(job, opts)}
		}(i, job)
	}
	wg.Wait()
	return results
}

func runJob(job Job, opts Options) error {
	out, err := Preprocess(job.Input, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.Output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", job.Output, err)
	}
	return nil
}
