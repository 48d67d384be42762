package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pages 页面布局: 标题, 介绍文字和按顺序排列的图表区块
type Pages struct {
	Title    string    `yaml:"title"`
	Intro    string    `yaml:"intro"`
	Sections []Section `yaml:"sections"`
}

// Section is one narrative block followed by a registered chart.
type Section struct {
	Chart   string `yaml:"chart"`
	Heading string `yaml:"heading"`
	Text    string `yaml:"text"`
}

// ParsePages decodes a YAML page layout.
func ParsePages(data []byte) (*Pages, error) {
	var p Pages
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	if len(p.Sections) == 0 {
		return nil, fmt.Errorf("parse pages: no sections")
	}
	for i, s := range p.Sections {
		if s.Chart == "" {
			return nil, fmt.Errorf("parse pages: section %d has no chart", i)
		}
	}
	return &p, nil
}

// LoadPages 读取 YAML 页面布局文件
func LoadPages(path string) (*Pages, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePages(data)
}

// PagesOrDefault loads path when set and present, otherwise parses fallback.
func PagesOrDefault(path string, fallback []byte) (*Pages, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadPages(path)
		}
	}
	return ParsePages(fallback)
}
