package auth

// GetPermissionModel 获取 OpenFGA 权限模型定义
// role 的 member 关系承载步骤角色(如 qa_reviewer)的成员判定,
// document 与 workflow 承载查询与模板管理权限
func GetPermissionModel() string {
	return `model
  schema 1.1

type user

type role
  relations
    define member: [user]

type workflow
  relations
    define admin: [user]
    define viewer: [user] or admin

type document
  relations
    define owner: [user]
    define viewer: [user] or owner`
}
