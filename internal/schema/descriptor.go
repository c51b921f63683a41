// Package schema 可查询实体的静态描述符
// 定义实体、列类型以及过滤/排序白名单，是所有查询构造的唯一授权来源
package schema

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// ColumnType 列的语义类型
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeDecimal ColumnType = "decimal"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
)

// SortDirection 排序方向
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Column 实体的一个列
type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

// Sort 排序设定
type Sort struct {
	Column    string        `yaml:"column"`
	Direction SortDirection `yaml:"direction"`
}

// Entity 一个可查询实体及其白名单
// 不在Filterable/Sortable中的列永远不会出现在生成的谓词/排序里
type Entity struct {
	Name        string   `yaml:"name"`
	Columns     []Column `yaml:"columns"`
	Filterable  []string `yaml:"filterable"`
	Sortable    []string `yaml:"sortable"`
	Display     []string `yaml:"display"`
	DefaultSort Sort     `yaml:"default_sort"`

	columnTypes map[string]ColumnType
	filterable  map[string]bool
	sortable    map[string]bool
}

// IsFilterable 判断列是否允许出现在过滤条件中
func (e *Entity) IsFilterable(column string) bool {
	return e.filterable[column]
}

// IsSortable 判断列是否允许出现在排序中
func (e *Entity) IsSortable(column string) bool {
	return e.sortable[column]
}

// ColumnType 返回列的语义类型
func (e *Entity) ColumnType(column string) (ColumnType, bool) {
	t, ok := e.columnTypes[column]
	return t, ok
}

// ColumnNames 按声明顺序返回全部列名
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// Descriptor 全部可查询实体的描述符
// 进程启动时构建一次，之后只读
type Descriptor struct {
	entities map[string]*Entity
	order    []string
}

type descriptorDoc struct {
	Entities []*Entity `yaml:"entities"`
}

// Load 从YAML文档解析描述符
func Load(r io.Reader) (*Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取schema文档失败: %w", err)
	}
	return parse(data)
}

// LoadFile 从文件加载描述符
func LoadFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开schema文件失败: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default 返回内置的默认描述符
// 内置文档在编译期嵌入，解析失败属于构建错误，直接panic
func Default() *Descriptor {
	d, err := parse(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("内置schema文档无效: %v", err))
	}
	return d
}

func parse(data []byte) (*Descriptor, error) {
	var doc descriptorDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析schema文档失败: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("schema文档未定义任何实体")
	}

	d := &Descriptor{entities: make(map[string]*Entity, len(doc.Entities))}
	for _, e := range doc.Entities {
		if err := e.build(); err != nil {
			return nil, err
		}
		if _, dup := d.entities[e.Name]; dup {
			return nil, fmt.Errorf("实体 %s 重复定义", e.Name)
		}
		d.entities[e.Name] = e
		d.order = append(d.order, e.Name)
	}
	return d, nil
}

// build 建立查询索引并校验白名单一致性
func (e *Entity) build() error {
	if e.Name == "" {
		return fmt.Errorf("实体名称不能为空")
	}
	if len(e.Columns) == 0 {
		return fmt.Errorf("实体 %s 未定义任何列", e.Name)
	}

	e.columnTypes = make(map[string]ColumnType, len(e.Columns))
	for _, c := range e.Columns {
		if _, dup := e.columnTypes[c.Name]; dup {
			return fmt.Errorf("实体 %s 的列 %s 重复定义", e.Name, c.Name)
		}
		switch c.Type {
		case TypeString, TypeInteger, TypeDecimal, TypeDate, TypeBoolean:
		default:
			return fmt.Errorf("实体 %s 的列 %s 类型无效: %s", e.Name, c.Name, c.Type)
		}
		e.columnTypes[c.Name] = c.Type
	}

	e.filterable = make(map[string]bool, len(e.Filterable))
	for _, col := range e.Filterable {
		if _, ok := e.columnTypes[col]; !ok {
			return fmt.Errorf("实体 %s 的可过滤列 %s 未在列定义中", e.Name, col)
		}
		e.filterable[col] = true
	}

	e.sortable = make(map[string]bool, len(e.Sortable))
	for _, col := range e.Sortable {
		if _, ok := e.columnTypes[col]; !ok {
			return fmt.Errorf("实体 %s 的可排序列 %s 未在列定义中", e.Name, col)
		}
		e.sortable[col] = true
	}

	for _, col := range e.Display {
		if _, ok := e.columnTypes[col]; !ok {
			return fmt.Errorf("实体 %s 的展示列 %s 未在列定义中", e.Name, col)
		}
	}

	if e.DefaultSort.Column == "" {
		return fmt.Errorf("实体 %s 缺少默认排序列", e.Name)
	}
	if !e.sortable[e.DefaultSort.Column] {
		return fmt.Errorf("实体 %s 的默认排序列 %s 不在可排序白名单中", e.Name, e.DefaultSort.Column)
	}
	switch e.DefaultSort.Direction {
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("实体 %s 的默认排序方向无效: %s", e.Name, e.DefaultSort.Direction)
	}

	return nil
}

// Entity 按名称查找实体
func (d *Descriptor) Entity(name string) (*Entity, bool) {
	e, ok := d.entities[name]
	return e, ok
}

// EntityNames 按声明顺序返回全部实体名
func (d *Descriptor) EntityNames() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}
