// Package cli реализует инструмент командной строки hrflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с hrflow API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления templates, instances и schedules.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для hrflow API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	templates, err := client.ListTemplates()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: hrflow instance list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - template: list, create, show, deactivate
//   - instance: list, start, show, approve, reject, cancel, recheck, audit
//   - schedule: list, create, show, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewTemplateCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
