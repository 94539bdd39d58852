package testutil

import (
	"encoding/json"
	"fmt"
)

// Identifiers of the melanoma fixture bundle: a mouse lymph-node project with
// two Smart-seq2 sequence files under one library-preparation process and one
// sequencing process.
const (
	MelanomaBundleUUID = "2a1c3f9d-6f2e-4a6b-9d0f-55e1c3a7b8f0"
	MelanomaVersion1   = "2019-05-15T093602.702000Z"
	MelanomaVersion2   = "2019-06-01T120000.000000Z"

	MelanomaProjectID     = "093f6a42-f691-4103-8112-79914a4be143"
	MelanomaDonorID       = "70d1af4a-82c8-478a-8960-757ab6be3f70"
	MelanomaSpecimenID    = "a21dc760-a500-4236-bcff-da34a0e873d2"
	MelanomaSuspensionID  = "b4b6b7a0-0bdb-40e3-a660-02d48d0ba3da"
	MelanomaLibPrepProcID = "77d2a8f1-21a3-4f53-a0bc-26b2f21b77de"
	MelanomaSeqProcID     = "e2c3df40-9b11-4ad8-b1a9-1af4e1a36021"
	MelanomaLibProtocolID = "9c32cf70-3ed7-4720-badc-5ee71e8a38af"
	MelanomaSeqProtoID    = "61e629ed-0135-4492-ac8a-5c4ab3ccca8a"
	MelanomaFile1ID       = "b2cd6fb7-d5d6-4dbc-b255-cf9cbcbb80fb"
	MelanomaFile2ID       = "7d41f2a8-caba-4aa6-9a75-4b1569724e74"
)

func entityJSON(schemaType, id, extra string) json.RawMessage {
	if extra != "" {
		extra = "," + extra
	}
	return json.RawMessage(fmt.Sprintf(`{
		"describedBy": "https://schema.example.org/type/%s",
		"schema_type": %q,
		"schema_version": "9.0.0",
		"provenance": {
			"document_id": %q,
			"submission_date": "2019-05-15T09:36:02.702Z",
			"update_date": "2019-05-16T11:12:13.000Z"
		}%s
	}`, schemaType, schemaType, id, extra))
}

func edgeJSON(srcID, srcType, dstID, dstType, role string) string {
	return fmt.Sprintf(`{"source_id":%q,"source_type":%q,"destination_id":%q,"destination_type":%q,"role":%q}`,
		srcID, srcType, dstID, dstType, role)
}

// MelanomaBundleDocuments returns the document-name to JSON mapping for the
// melanoma fixture: project descriptor, donor -> specimen -> cell suspension
// biomaterial chain, library-preparation and sequencing processes with their
// protocols, and two fastq files.
func MelanomaBundleDocuments() map[string]json.RawMessage {
	links := []string{
		edgeJSON(MelanomaDonorID, "biomaterial", MelanomaLibPrepProcID, "process", "input_to"),
		edgeJSON(MelanomaSpecimenID, "biomaterial", MelanomaLibPrepProcID, "process", "input_to"),
		edgeJSON(MelanomaSuspensionID, "biomaterial", MelanomaLibPrepProcID, "process", "input_to"),
		edgeJSON(MelanomaSuspensionID, "biomaterial", MelanomaSeqProcID, "process", "input_to"),
		edgeJSON(MelanomaLibProtocolID, "protocol", MelanomaLibPrepProcID, "process", "protocol_used"),
		edgeJSON(MelanomaSeqProtoID, "protocol", MelanomaSeqProcID, "process", "protocol_used"),
		edgeJSON(MelanomaLibPrepProcID, "process", MelanomaFile1ID, "file", "produced_by"),
		edgeJSON(MelanomaLibPrepProcID, "process", MelanomaFile2ID, "file", "produced_by"),
		edgeJSON(MelanomaSeqProcID, "process", MelanomaFile1ID, "file", "produced_by"),
		edgeJSON(MelanomaSeqProcID, "process", MelanomaFile2ID, "file", "produced_by"),
	}
	linksBody := ""
	for i, l := range links {
		if i > 0 {
			linksBody += ","
		}
		linksBody += l
	}

	return map[string]json.RawMessage{
		"project_0.json": entityJSON("project", MelanomaProjectID, `
			"project_core": {
				"project_short_name": "Mouse Melanoma",
				"project_title": "Melanoma infiltration of mouse lymph nodes"
			}`),
		"donor_organism_0.json": entityJSON("biomaterial", MelanomaDonorID, `
			"genus_species": [{"text": "Mus musculus", "ontology": "NCBITaxon:10090"}],
			"biological_sex": "female"`),
		"specimen_from_organism_0.json": entityJSON("biomaterial", MelanomaSpecimenID, `
			"organ": {"text": "lymph node", "ontology": "UBERON:0000029"}`),
		"cell_suspension_0.json": entityJSON("biomaterial", MelanomaSuspensionID, `
			"total_estimated_cells": 1`),
		"process_0.json": entityJSON("process", MelanomaLibPrepProcID, `
			"process_core": {"process_id": "lib_prep_1"}`),
		"process_1.json": entityJSON("process", MelanomaSeqProcID, `
			"process_core": {"process_id": "sequencing_1"}`),
		"library_preparation_protocol_0.json": entityJSON("protocol", MelanomaLibProtocolID, `
			"library_construction_approach": "Smart-seq2",
			"end_bias": "full length"`),
		"sequencing_protocol_0.json": entityJSON("protocol", MelanomaSeqProtoID, `
			"instrument_manufacturer_model": {"text": "Illumina HiSeq 2500"},
			"paired_end": true`),
		"sequence_file_0.json": entityJSON("file", MelanomaFile1ID, `
			"file_core": {"file_name": "WT_1_S82_L005_R1_001.fastq.gz", "file_format": "fastq.gz"},
			"read_index": "read1"`),
		"sequence_file_1.json": entityJSON("file", MelanomaFile2ID, `
			"file_core": {"file_name": "WT_1_S82_L005_R2_001.fastq.gz", "file_format": "fastq.gz"},
			"read_index": "read2"`),
		"links.json": json.RawMessage(fmt.Sprintf(`{
			"describedBy": "https://schema.example.org/system/links",
			"schema_type": "links",
			"links": [%s]
		}`, linksBody)),
	}
}
