// Package registry управляет жизненным циклом workflow templates.
//
// Registry — единственная точка входа для работы с templates:
//   - Register    — валидация и сохранение нового template
//   - Get         — чтение по ID (включая неактивные, для истории)
//   - GetActive   — чтение для создания instance (неактивные отклоняются)
//   - Deactivate  — выключение (идемпотентно, instances не затрагиваются)
//   - List        — список с фильтрацией
//
// Templates неизменяемы после регистрации: исправление процесса — это
// регистрация нового template и деактивация старого. Поэтому кэш
// в Registry не нуждается в инвалидации по TTL — запись исчезает из
// кэша только при деактивации.
package registry
