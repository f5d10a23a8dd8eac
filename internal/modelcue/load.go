package modelcue

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/firemap/internal/model"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading model declarations from a
// directory.
type LoadResult struct {
	Descriptors []*model.Descriptor
	CUEValue    cue.Value // The raw CUE value for additional processing
	FileCount   int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for model loading.
const (
	ErrCodeGeneric     = "M001" // Generic/unknown error
	ErrCodeScanError   = "M002" // Directory scan error
	ErrCodeNoFiles     = "M003" // No CUE files found
	ErrCodeLoadFailed  = "M004" // CUE load failed
	ErrCodeNotFound    = "M005" // Path not found
	ErrCodeBuildFailed = "M006" // CUE build failed
	ErrCodeBadModel    = "M101" // Model declaration invalid
)

// LoadModels loads and compiles CUE model declarations from a
// directory. If mode is LoadModeFailFast, returns on first error; if
// LoadModeCollectAll, collects all errors.
func LoadModels(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no model declarations found"})
		return result, errs
	}

	iter, iterErr := modelsVal.Fields()
	if iterErr != nil {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", iterErr)})
		return result, errs
	}
	for iter.Next() {
		desc, compileErr := CompileModel(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "model."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Descriptors = append(result.Descriptors, desc)
	}

	if len(result.Descriptors) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found in declarations"})
	}

	return result, errs
}

// Registry builds a descriptor registry from the loaded models. Fails
// on duplicate model names, which can occur when merging results from
// more than one load.
func (r *LoadResult) Registry() (*model.Registry, error) {
	reg := model.NewRegistry()
	for _, desc := range r.Descriptors {
		if err := reg.Register(desc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error, context string) *LoadError {
	if compileErr, ok := err.(*CompileError); ok {
		return &LoadError{
			Code:    ErrCodeBadModel,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
