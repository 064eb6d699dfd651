package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Prediction is the outcome of classifying one masked email.
type Prediction struct {
	ClusterID int
	Category  string
}

// Pipeline bundles the fitted vectorizer, the cluster model and the category
// table. It is built once at start-up and shared read-only by all requests.
type Pipeline struct {
	vectorizer  *Vectorizer
	model       *KMeans
	categories  CategoryMap
	fingerprint string
}

// NewPipeline validates that the model was fitted on the vectorizer's space.
func NewPipeline(vectorizer *Vectorizer, model *KMeans, categories CategoryMap) (*Pipeline, error) {
	if vectorizer == nil || model == nil {
		return nil, fmt.Errorf("%w: vectorizer and model are required", ErrModelLoad)
	}
	if vectorizer.Dim() != model.Dim() {
		return nil, fmt.Errorf("%w: vectorizer has %d features but model expects %d", ErrModelLoad, vectorizer.Dim(), model.Dim())
	}
	return newPipeline(vectorizer, model, categories), nil
}

func newPipeline(vectorizer *Vectorizer, model *KMeans, categories CategoryMap) *Pipeline {
	return &Pipeline{
		vectorizer:  vectorizer,
		model:       model,
		categories:  categories,
		fingerprint: fingerprint(vectorizer, model, categories),
	}
}

// fingerprint hashes both artifacts in their saved form plus the category
// table, so any retrain or relabelling yields a new value.
func fingerprint(vectorizer *Vectorizer, model *KMeans, categories CategoryMap) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(newVectorizerArtifact(vectorizer))
	_ = enc.Encode(newKMeansArtifact(model))
	for _, id := range categories.IDs() {
		fmt.Fprintf(h, "%d=%s\n", id, categories.names[id])
	}
	fmt.Fprintf(h, "fallback=%s\n", categories.fallback)
	return hex.EncodeToString(h.Sum(nil))
}

// LoadPipeline reads both artifacts from disk.
func LoadPipeline(vectorizerPath, modelPath string, categories CategoryMap) (*Pipeline, error) {
	vectorizer, err := LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadKMeans(modelPath)
	if err != nil {
		return nil, err
	}
	return NewPipeline(vectorizer, model, categories)
}

// WithCategories returns a pipeline sharing the same models with a
// different category table.
func (p *Pipeline) WithCategories(categories CategoryMap) *Pipeline {
	return newPipeline(p.vectorizer, p.model, categories)
}

// Predict assigns masked text to a cluster and resolves its category.
func (p *Pipeline) Predict(masked string) Prediction {
	id := p.model.Predict(p.vectorizer.Transform(masked))
	return Prediction{ClusterID: id, Category: p.categories.Resolve(id)}
}

// Save writes both artifacts.
func (p *Pipeline) Save(vectorizerPath, modelPath string) error {
	if err := SaveVectorizer(vectorizerPath, p.vectorizer); err != nil {
		return err
	}
	return SaveKMeans(modelPath, p.model)
}

// Fingerprint identifies the loaded artifacts and category table.
func (p *Pipeline) Fingerprint() string { return p.fingerprint }

// NClusters reports the number of clusters in the model.
func (p *Pipeline) NClusters() int { return p.model.NClusters() }
