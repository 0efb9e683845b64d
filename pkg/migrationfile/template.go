package migrationfile

// Template is the definition written by `surrealmigrate init`.
const Template = `# Migration definition for surrealmigrate.
#
# operation is one of create, update or delete.
operation: update

# select finds the documents to update or delete. $tb is bound to the
# configured container.
select:
  query: SELECT * FROM type::table($tb) WHERE type = $type
  vars:
    type: appProductsByDay

# transform rewrites each selected document, one step after another.
# Steps: set, unset, increment, rename, copy, convert.
transform:
  - increment: {field: count, by: 1}

# inverse, when present, must undo transform. It is checked on the first
# selected document before anything is written.
inverse:
  - increment: {field: count, by: -1}

# delete only: the partition key used for documents that lack one. field,
# when given, must match the configured partition key.
# partitionKey: {field: tenantId, default: ""}

# create only: where the new documents come from.
# input:
#   type: csv            # json, csv, backup or store
#   path: documents.csv
#   csv: {separator: ",", skipLines: 0, strict: true}
#   map:
#     - convert: {field: count, to: int}
# generateIds: true
`

// EnvTemplate is the dotenv file written by `surrealmigrate init`.
const EnvTemplate = `SURREALMIGRATE_ENDPOINT=ws://localhost:8000
SURREALMIGRATE_USERNAME=root
SURREALMIGRATE_PASSWORD=root
SURREALMIGRATE_NAMESPACE=
SURREALMIGRATE_DATABASE=
SURREALMIGRATE_CONTAINER=
SURREALMIGRATE_PARTITION_KEY=tenantId
`
