package symptomrx

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// ArtifactVersion is bumped whenever the encoded Pipeline layout changes.
const ArtifactVersion = 1

var artifactMagic = []byte("SYMPTRX1")

// Artifact is the persisted form of a fitted pipeline.
type Artifact struct {
	Version   int
	RunID     string
	CreatedAt time.Time
	Pipeline  *Pipeline
}

// Encode writes the magic header followed by an xz-compressed gob of a.
func Encode(w io.Writer, a *Artifact) error {
	if a == nil || a.Pipeline == nil {
		return errors.New("nothing to encode")
	}
	if _, err := w.Write(artifactMagic); err != nil {
		return err
	}
	zw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(a); err != nil {
		zw.Close()
		return fmt.Errorf("encode: %w", err)
	}
	return zw.Close()
}

// DecodeArtifact reads an artifact written by Encode.
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	header := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header, artifactMagic) {
		return nil, errors.New("not a symptomrx artifact")
	}
	zr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	var a Artifact
	if err := gob.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if a.Pipeline == nil || a.Pipeline.Vocabulary == nil || a.Pipeline.Classifier == nil {
		return nil, errors.New("artifact has no fitted pipeline")
	}
	return &a, nil
}

// DecodePipeline reads an artifact and returns its pipeline.
func DecodePipeline(r io.Reader) (*Pipeline, error) {
	a, err := DecodeArtifact(r)
	if err != nil {
		return nil, err
	}
	return a.Pipeline, nil
}

// SaveArtifact writes a to path atomically, creating the parent directory.
func SaveArtifact(path string, a *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, a); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// SavePipeline persists p without run metadata.
func SavePipeline(path string, p *Pipeline) error {
	return SaveArtifact(path, &Artifact{
		Version:   ArtifactVersion,
		CreatedAt: time.Now().UTC(),
		Pipeline:  p,
	})
}

// LoadArtifact reads an artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()
	a, err := DecodeArtifact(bufio.NewReader(f))
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return a, nil
}

// LoadPipeline reads the pipeline stored at path.
func LoadPipeline(path string) (*Pipeline, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return a.Pipeline, nil
}
