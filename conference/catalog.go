package conference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog 会议提示词目录：按会议类型查询讨论基础提示与结论模板。
// 两个查询都是纯查表，未知类型属于调用方错误。
type Catalog interface {
	Prompt(t Type) string
	ResultTemplate(t Type) string
}

type catalogEntry struct {
	Prompt         string `yaml:"prompt"`
	ResultTemplate string `yaml:"result_template"`
}

type catalog struct {
	entries map[Type]catalogEntry
}

// NewBuiltinCatalog 返回内置目录
func NewBuiltinCatalog() Catalog {
	return &catalog{entries: builtinEntries()}
}

// LoadCatalog 在内置目录上叠加 YAML 覆盖文件。
// path 为空时等价于 NewBuiltinCatalog。覆盖文件只需给出要替换的字段。
func LoadCatalog(path string) (Catalog, error) {
	entries := builtinEntries()
	if path == "" {
		return &catalog{entries: entries}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file struct {
		Conferences map[string]catalogEntry `yaml:"conferences"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for name, overlay := range file.Conferences {
		t := Type(name)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown conference type %q in catalog file", name)
		}
		entry := entries[t]
		if overlay.Prompt != "" {
			entry.Prompt = overlay.Prompt
		}
		if overlay.ResultTemplate != "" {
			entry.ResultTemplate = overlay.ResultTemplate
		}
		entries[t] = entry
	}

	return &catalog{entries: entries}, nil
}

func (c *catalog) Prompt(t Type) string {
	return c.entries[t].Prompt
}

func (c *catalog) ResultTemplate(t Type) string {
	return c.entries[t].ResultTemplate
}

func builtinEntries() map[Type]catalogEntry {
	return map[Type]catalogEntry{
		TypeBudgetAllocation: {
			Prompt: `现在召开预算分配会议。请各位分析师：
1. 评估各自负责的资产类别的近期表现
2. 分析当前市场状况和趋势
3. 评估风险水平
4. 提出投资预算在比特币、道琼斯30指数和外汇之间的分配建议`,
			ResultTemplate: `## 预算分配会议结论

### 市场状况评估
（总结各资产类别的市场状况）

### 风险水平
（给出整体风险评估）

### 资产配置方案
- 比特币：___%
- 道琼斯30指数：___%
- 外汇：___%

### 后续行动
（列出需要跟进的事项）`,
		},
		TypeExperienceSharing: {
			Prompt: `现在召开经验分享会议。请各位分析师：
1. 分享过去投资决策中的成功经验
2. 复盘失败案例并分析原因
3. 提炼可以沉淀为团队经验的投资智慧`,
			ResultTemplate: `## 经验分享会议结论

### 成功经验
（总结值得推广的做法）

### 失败教训
（总结需要避免的错误）

### 团队经验更新
（列出沉淀为团队一般经验的条目）`,
		},
		TypeExtremeMarket: {
			Prompt: `现在召开极端市场会议。当前市场出现极端行情，请各位分析师：
1. 分析当前极端市场情况及成因
2. 评估现有持仓的风险敞口
3. 讨论已产生损失的原因
4. 提出资产处置和应对措施建议`,
			ResultTemplate: `## 极端市场会议结论

### 市场情况分析
（描述极端行情及成因）

### 持仓风险评估
（评估各持仓的风险敞口）

### 损失原因
（总结已产生损失的原因）

### 应对措施
（列出资产处置方案和防御动作）`,
		},
	}
}
