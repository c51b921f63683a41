package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 订单编号提取模式，按特异性排列：先找带标签的，再退化到裸编号
var orderIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:订单号|訂單號|订单编号|訂單編號)\s*[:：]?\s*([A-Za-z0-9\-]+)`),
	regexp.MustCompile(`(?i)order[_\s]?(?:id|number)\s*[:：]?\s*([A-Za-z0-9\-]+)`),
	regexp.MustCompile(`\b([A-Z]{2,4}\d{2,8})\b`),
	regexp.MustCompile(`(\d{5,10})`),
	regexp.MustCompile(`(\d{2,6})`),
}

// SKU提取模式
var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sku\s*[:：]?\s*([A-Za-z0-9\-_]+)`),
	regexp.MustCompile(`(?:产品编号|產品編號)\s*[:：]?\s*([A-Za-z0-9\-_]+)`),
	regexp.MustCompile(`\b([A-Z]{2,5}\d{3,6})\b`),
}

var (
	limitPattern        = regexp.MustCompile(`(\d+)\s*(?:个|個|条|條|笔|筆|项|項|行|名)`)
	relativeDayPattern  = regexp.MustCompile(`(?:最近|近|过去|過去|前)\s*(\d+)\s*(?:天|日)`)
	absoluteDatePattern = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})日?`)
	digitRunPattern     = regexp.MustCompile(`\d+`)
	usernameAfterMark   = regexp.MustCompile(`(?:用户名|用戶名|username)\s*[:：]?\s*([A-Za-z0-9_.\-]+)`)
)

// 订单状态词表，键为数据库中的规范值
// 词表覆盖简繁体与常用英文写法
var statusVocabulary = []struct {
	canonical string
	words     []string
}{
	{"processing", []string{"处理中", "處理中", "待列印", "processing"}},
	{"pending", []string{"待处理", "待處理", "等待", "pending"}},
	{"shipped", []string{"已发货", "已發貨", "已列印", "shipped"}},
	{"delivered", []string{"已送达", "已送達", "已出货", "已出貨", "delivered"}},
	{"cancelled", []string{"已取消", "取消", "cancelled"}},
	{"closed", []string{"已关闭", "已關閉", "关转", "關轉", "closed"}},
	{"returned", []string{"已退货", "已退貨", "退货", "退貨", "returned"}},
}

// 产品分类词表
var categoryVocabulary = []struct {
	canonical string
	words     []string
}{
	{"mizuki", []string{"mizuki", "水木"}},
	{"seki", []string{"seki", "關", "关"}},
	{"hibiki", []string{"hibiki", "響", "响"}},
	{"ksp", []string{"ksp"}},
	{"rei", []string{"rei", "零"}},
	{"kirali", []string{"kirali", "基拉利"}},
	{"yuzumi", []string{"yuzumi", "柚子"}},
	{"meridian", []string{"meridian", "子午線", "子午线"}},
	{"sakuro", []string{"sakuro", "櫻郎", "樱郎"}},
	{"oboro", []string{"oboro", "朧", "胧"}},
	{"yoruno", []string{"yoruno", "夜野"}},
	{"iruni", []string{"iruni", "伊魯尼", "伊鲁尼"}},
	{"itsuki", []string{"itsuki", "一樹", "一树"}},
	{"other", []string{"other", "其他", "其它"}},
}

// 自由文本提取时剥离的疑问动词与修饰词
var (
	queryVerbs   = []string{"搜索", "搜尋", "查找", "查询", "查詢", "显示", "顯示", "列出", "查看", "search", "find", "query", "show", "list"}
	termPrefixes = []string{"客户", "客戶", "顾客", "顧客", "customer", "用户", "用戶", "使用者", "user", "产品", "產品", "商品", "product", "的"}
	termSuffixes = []string{"的订单", "的訂單", "的产品", "的產品", "的用户", "的用戶", "的使用者", "订单", "訂單", "客户", "客戶", "信息", "資訊", "资料"}
)

// extractOrderID 从问题中提取订单编号
func extractOrderID(text string) (string, bool) {
	for _, p := range orderIDPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			id := strings.TrimSpace(m[1])
			if id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// extractSKU 从问题中提取产品SKU
func extractSKU(text string) (string, bool) {
	for _, p := range skuPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// extractLimit 提取结果数上限
// 优先认带量词的数字（"10个"），否则退化到第一个数字串；
// 解析失败时该参数降级为缺失而不是让整个分类失败
func extractLimit(text string) (int, bool) {
	var raw string
	if m := limitPattern.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := digitRunPattern.FindString(text); m != "" {
		raw = m
	} else {
		return 0, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractStatus 按词表识别订单状态
func extractStatus(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range statusVocabulary {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.canonical, true
			}
		}
	}
	return "", false
}

// extractCategory 按词表识别产品分类
func extractCategory(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range categoryVocabulary {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.canonical, true
			}
		}
	}
	return "", false
}

// extractUsername 提取带标记的用户名
func extractUsername(text string) (string, bool) {
	if m := usernameAfterMark.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// extractDateRange 解析日期范围
// 支持相对写法（最近N天/过去N天）和绝对日期（YYYY-MM-DD、YYYY年M月D日），
// 相对日期基于传入的now解析，保证可测试与幂等
func extractDateRange(text string, now time.Time) (from, to *time.Time) {
	if m := relativeDayPattern.FindStringSubmatch(text); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil && days > 0 {
			end := now
			start := now.AddDate(0, 0, -days)
			return &start, &end
		}
	}

	matches := absoluteDatePattern.FindAllStringSubmatch(text, 2)
	parse := func(m []string) *time.Time {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return nil
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		return &t
	}

	switch len(matches) {
	case 1:
		return parse(matches[0]), nil
	case 2:
		from, to = parse(matches[0]), parse(matches[1])
		if from != nil && to != nil && to.Before(*from) {
			from, to = to, from
		}
		return from, to
	}
	return nil, nil
}

// extractFreeText 剥离疑问动词和实体修饰词，留下自由文本过滤词
func extractFreeText(text string) string {
	term := text
	for _, w := range queryVerbs {
		term = strings.ReplaceAll(term, w, "")
	}
	term = strings.TrimSpace(term)

	for _, p := range termPrefixes {
		term = strings.TrimSpace(strings.TrimPrefix(term, p))
	}
	for _, s := range termSuffixes {
		term = strings.TrimSpace(strings.TrimSuffix(term, s))
	}
	return strings.Trim(term, " \t，。？?！!：:")
}

// containsAny 判断文本是否包含任一关键词，拉丁字符不区分大小写
func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
