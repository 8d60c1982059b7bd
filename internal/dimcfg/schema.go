package dimcfg

// schemaJSON is the embedded JSON Schema a dimension config document
// must satisfy before a Node can be constructed from it.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "meshnode://dimcfg.schema.json",
  "type": "object",
  "required": [
    "elements",
    "subscription_slots",
    "appkey_bind_slots",
    "nonvirtual_addresses",
    "virtual_addresses",
    "netkeys",
    "appkeys",
    "seq_nvm_increment",
    "seq_threshold_low",
    "seq_threshold_high"
  ],
  "properties": {
    "elements": {"type": "integer", "minimum": 1, "maximum": 255},
    "subscription_slots": {"type": "integer", "minimum": 0, "maximum": 1000},
    "appkey_bind_slots": {"type": "integer", "minimum": 0, "maximum": 1000},
    "nonvirtual_addresses": {"type": "integer", "minimum": 0, "maximum": 65535},
    "virtual_addresses": {"type": "integer", "minimum": 0, "maximum": 65535},
    "netkeys": {"type": "integer", "minimum": 1, "maximum": 4096},
    "appkeys": {"type": "integer", "minimum": 0, "maximum": 4096},
    "seq_nvm_increment": {"type": "integer", "minimum": 1, "maximum": 16777215},
    "seq_threshold_low": {"type": "integer", "minimum": 0, "maximum": 16777215},
    "seq_threshold_high": {"type": "integer", "minimum": 0, "maximum": 16777215},
    "iv_update_guard_seconds": {"type": "integer", "minimum": 0},
    "iv_recover_guard_seconds": {"type": "integer", "minimum": 0},
    "guard_timers_disabled": {"type": "boolean"}
  }
}`
