// Package language normalizes locale identifiers exchanged with the TMS.
//
// The TMS and the content host disagree on spelling: webhooks carry "es_ES" or
// "es-es" while configuration lists "es-ES" or plain "es". Every locale that
// enters the store, the profile evaluator, or an outbound TMS call passes
// through Normalize first, so map lookups and uniqueness checks compare
// canonical BCP 47 tags.
package language
