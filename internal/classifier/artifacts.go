package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrModelLoad marks a missing or unreadable model artifact.
var ErrModelLoad = errors.New("model artifact could not be loaded")

const (
	artifactVersion       = 1
	vectorizerArtifactKey = "tfidf_vectorizer"
	kmeansArtifactKey     = "kmeans"
)

type vectorizerArtifact struct {
	Kind        string         `json:"kind"`
	Version     int            `json:"version"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	StopWords   bool           `json:"stop_words"`
	StripMarkup bool           `json:"strip_markup"`
}

type kmeansArtifact struct {
	Kind      string      `json:"kind"`
	Version   int         `json:"version"`
	NClusters int         `json:"n_clusters"`
	Centroids [][]float64 `json:"centroids"`
}

// SaveVectorizer writes the fitted transform as a JSON document.
func SaveVectorizer(path string, v *Vectorizer) error {
	return writeJSON(path, newVectorizerArtifact(v))
}

func newVectorizerArtifact(v *Vectorizer) vectorizerArtifact {
	return vectorizerArtifact{
		Kind:        vectorizerArtifactKey,
		Version:     artifactVersion,
		Vocabulary:  v.vocabulary,
		IDF:         v.idf,
		StopWords:   v.opts.StopWords,
		StripMarkup: v.opts.StripMarkup,
	}
}

// LoadVectorizer reads a transform saved by SaveVectorizer.
func LoadVectorizer(path string) (*Vectorizer, error) {
	var art vectorizerArtifact
	if err := readJSON(path, &art); err != nil {
		return nil, err
	}
	if art.Kind != vectorizerArtifactKey || art.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %s is not a %s v%d artifact", ErrModelLoad, path, vectorizerArtifactKey, artifactVersion)
	}
	v, err := NewVectorizer(art.Vocabulary, art.IDF, VectorizerOptions{StopWords: art.StopWords, StripMarkup: art.StripMarkup})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	return v, nil
}

// SaveKMeans writes the fitted cluster model as a JSON document.
func SaveKMeans(path string, k *KMeans) error {
	return writeJSON(path, newKMeansArtifact(k))
}

func newKMeansArtifact(k *KMeans) kmeansArtifact {
	return kmeansArtifact{
		Kind:      kmeansArtifactKey,
		Version:   artifactVersion,
		NClusters: k.NClusters(),
		Centroids: k.centroids,
	}
}

// LoadKMeans reads a model saved by SaveKMeans.
func LoadKMeans(path string) (*KMeans, error) {
	var art kmeansArtifact
	if err := readJSON(path, &art); err != nil {
		return nil, err
	}
	if art.Kind != kmeansArtifactKey || art.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %s is not a %s v%d artifact", ErrModelLoad, path, kmeansArtifactKey, artifactVersion)
	}
	if art.NClusters != len(art.Centroids) {
		return nil, fmt.Errorf("%w: %s declares %d clusters but has %d centroids", ErrModelLoad, path, art.NClusters, len(art.Centroids))
	}
	k, err := NewKMeans(art.Centroids)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	return k, nil
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	return nil
}

func writeJSON(path string, payload interface{}) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
