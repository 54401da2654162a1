package code

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	ErrorServerInternal = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorInvalidParams  = NewError(400, lang{en: "Invalid parameters", zh_cn: "参数错误"})
	ErrorNotFound       = NewError(404, lang{en: "Not found", zh_cn: "未找到"})
	ErrorTooManyRequest = NewError(429, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorDBQuery        = NewError(501, lang{en: "Database query failed", zh_cn: "数据库查询失败"})

	ErrorContractNotFound     = NewError(1001, lang{en: "Contract not found", zh_cn: "合同不存在"})
	ErrorVersionNotFound      = NewError(1002, lang{en: "Contract version not found", zh_cn: "合同版本不存在"})
	ErrorHashComputation      = NewError(1003, lang{en: "Unable to compute content hash, upload a new file", zh_cn: "无法计算内容哈希，请重新上传文件"})
	ErrorAmbiguousMatch       = NewError(1004, lang{en: "Upload matches several contracts, choose one", zh_cn: "上传文件匹配到多个合同，请指定合同"})
	ErrorSequentialVersion    = NewError(1005, lang{en: "Version sequence violation", zh_cn: "版本顺序冲突"})
	ErrorReferentialIntegrity = NewError(1006, lang{en: "Clause does not belong to contract", zh_cn: "条款与合同不匹配"})
	ErrorStorageTransaction   = NewError(1007, lang{en: "Storage transaction failed, retry later", zh_cn: "存储事务失败，请稍后重试"})
	ErrorDuplicateContract    = NewError(1008, lang{en: "Contract with identical content already exists", zh_cn: "相同内容的合同已存在"})
	ErrorInvalidClauseSet     = NewError(1009, lang{en: "Invalid clause set", zh_cn: "条款集合无效"})
	ErrorInvalidStorageType   = NewError(1010, lang{en: "Invalid storage type", zh_cn: "无效的存储类型"})
	ErrorStorageNotEnabled    = NewError(1011, lang{en: "Storage is not enabled", zh_cn: "存储未启用"})
	ErrorWriteQueueBusy       = NewError(1012, lang{en: "Contract is busy, retry later", zh_cn: "合同正在写入，请稍后重试"})
	ErrorArchiveNotFound      = NewError(1013, lang{en: "Archived upload not found", zh_cn: "归档文件不存在"})
)
