package service

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/util"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/training_modules.yaml
var defaultCatalogYAML []byte

// TrainingCatalog 启动时加载的只读培训模块目录
type TrainingCatalog struct {
	modules []model.TrainingModule
	byID    map[string]int
}

type catalogFile struct {
	Modules []model.TrainingModule `yaml:"modules"`
}

// LoadTrainingCatalog path 为空时使用内置目录
func LoadTrainingCatalog(path string) (*TrainingCatalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read training catalog: %w", err)
		}
		data = b
	}
	return ParseTrainingCatalog(data)
}

// ParseTrainingCatalog 解析并校验目录：id 唯一、测验答案下标合法、所有可推荐模块都存在
func ParseTrainingCatalog(data []byte) (*TrainingCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse training catalog: %w", err)
	}
	return NewTrainingCatalog(f.Modules)
}

func NewTrainingCatalog(modules []model.TrainingModule) (*TrainingCatalog, error) {
	c := &TrainingCatalog{
		modules: make([]model.TrainingModule, len(modules)),
		byID:    make(map[string]int, len(modules)),
	}
	copy(c.modules, modules)

	for i, m := range c.modules {
		if m.ID == "" {
			return nil, fmt.Errorf("training module at position %d has no id", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate training module id %q", m.ID)
		}
		for _, q := range m.QuizItems() {
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return nil, fmt.Errorf("module %q: quiz question %q has correct_index %d out of range", m.ID, q.Question, q.CorrectIndex)
			}
		}
		c.byID[m.ID] = i
	}

	for _, id := range RecommendableModuleIDs {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("training catalog is missing recommendable module %q", id)
		}
	}
	return c, nil
}

// Get 返回模块副本，不存在时返回 util.ErrModuleNotFound
func (c *TrainingCatalog) Get(id string) (*model.TrainingModule, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrModuleNotFound, id)
	}
	m := c.modules[i]
	return &m, nil
}

func (c *TrainingCatalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Summaries 按目录顺序返回模块摘要
func (c *TrainingCatalog) Summaries() []model.ModuleSummary {
	out := make([]model.ModuleSummary, 0, len(c.modules))
	for i := range c.modules {
		out = append(out, c.modules[i].Summary())
	}
	return out
}
