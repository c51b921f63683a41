package query

import (
	"errors"
	"fmt"
)

// 构造与执行阶段的哨兵错误
// 上层按errors.Is区分并映射为不同的用户话术，原始细节只进日志
var (
	ErrUnsupported         = errors.New("不支持的查询意图")
	ErrDatabaseUnavailable = errors.New("数据库连接不可用")
	ErrDatabaseTimeout     = errors.New("数据库查询超时")
)

// InvalidParameterError 参数值无法安全使用
// Field是参数名，Reason用于向用户解释期望的格式
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("参数 %s 无效: %s", e.Field, e.Reason)
}

// AsInvalidParameter 便捷提取
func AsInvalidParameter(err error) (*InvalidParameterError, bool) {
	var ipe *InvalidParameterError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
