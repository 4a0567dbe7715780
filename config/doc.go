// Package config 提供沙龙的配置管理功能。
//
// 配置由默认值、YAML 文件与环境变量（默认前缀 SALON）依次叠加，
// 加载后用 validator 做字段级校验，再做跨字段校验：
// 参与者名称唯一、主持人名称不与参与者重名、引用的 provider 必须存在。
package config
