package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldContractID 合同 ID 字段
	FieldContractID = "contractId"

	// FieldVersion 版本号字段
	FieldVersion = "version"

	// FieldExpectedVersion 期望版本号字段
	FieldExpectedVersion = "expectedVersion"

	// FieldHash 内容哈希字段
	FieldHash = "hash"

	// FieldFilename 文件名字段
	FieldFilename = "filename"

	// FieldClauseID 条款标识字段
	FieldClauseID = "clauseId"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"

	// FieldSize 文件大小字段
	FieldSize = "size"

	// FieldFileKey 文件键字段
	FieldFileKey = "fileKey"
)
